package hnsw

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"

	"github.com/vectorwise/vectorwise/pkg/core/store"
	"github.com/vectorwise/vectorwise/pkg/core/vecerr"
	"github.com/vectorwise/vectorwise/pkg/persistence"
)

// Artifact layout: a header frame with the baked-in parameters, then a graph
// frame holding an s2-compressed gob payload (levels, adjacency, raw vector
// block). The header is read first so a serving process can reject an
// artifact with the wrong dimension before decompressing anything.
const snapshotVersion = 1

// snapshotHeader is the fixed-size artifact header.
// Layout (little endian): version u16, dim u32, m u32, efConstruction u32,
// precision u8, count u32, entrypoint u32, maxLevel i32.
const headerLen = 2 + 4 + 4 + 4 + 1 + 4 + 4 + 4

type snapshotPayload struct {
	Levels      []int32
	Connections [][][]uint32
	Store       *store.SnapshotData
}

func precisionByte(p store.Precision) byte {
	if p == store.Float16 {
		return 1
	}
	return 0
}

func precisionFromByte(b byte) store.Precision {
	if b == 1 {
		return store.Float16
	}
	return store.Float32
}

// WriteSnapshot serializes the index to w.
func (h *Index) WriteSnapshot(w io.Writer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	header := make([]byte, headerLen)
	binary.LittleEndian.PutUint16(header[0:2], snapshotVersion)
	binary.LittleEndian.PutUint32(header[2:6], uint32(h.store.Dim()))
	binary.LittleEndian.PutUint32(header[6:10], uint32(h.m))
	binary.LittleEndian.PutUint32(header[10:14], uint32(h.efConstruction))
	header[14] = precisionByte(h.store.Precision())
	binary.LittleEndian.PutUint32(header[15:19], uint32(h.store.Count()))
	binary.LittleEndian.PutUint32(header[19:23], h.entrypoint)
	binary.LittleEndian.PutUint32(header[23:27], uint32(int32(h.maxLevel)))

	if err := persistence.WriteFrame(w, persistence.SectionHeader, header); err != nil {
		return fmt.Errorf("write header frame: %w", err)
	}

	payload := snapshotPayload{
		Levels:      make([]int32, len(h.nodes)),
		Connections: make([][][]uint32, len(h.nodes)),
		Store:       h.store.Snapshot(),
	}
	for i, n := range h.nodes {
		payload.Levels[i] = int32(n.Level)
		payload.Connections[i] = n.Connections
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return fmt.Errorf("encode graph payload: %w", err)
	}
	compressed := s2.Encode(nil, buf.Bytes())

	if err := persistence.WriteFrame(w, persistence.SectionGraph, compressed); err != nil {
		return fmt.Errorf("write graph frame: %w", err)
	}
	return nil
}

// ReadSnapshot deserializes an index from r. If wantDim is non-zero, a header
// dimension that differs fails fast before the graph frame is touched. Every
// structural invariant is validated before the index is returned; violations
// surface as ErrCorruptArtifact.
func ReadSnapshot(r io.Reader, wantDim int) (*Index, error) {
	header, err := persistence.ReadFrame(r, persistence.SectionHeader)
	if err != nil {
		return nil, fmt.Errorf("read header frame: %w (%w)", err, vecerr.ErrCorruptArtifact)
	}
	if len(header) != headerLen {
		return nil, fmt.Errorf("header length %d: %w", len(header), vecerr.ErrCorruptArtifact)
	}

	version := binary.LittleEndian.Uint16(header[0:2])
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported artifact version %d: %w", version, vecerr.ErrCorruptArtifact)
	}
	dim := int(binary.LittleEndian.Uint32(header[2:6]))
	m := int(binary.LittleEndian.Uint32(header[6:10]))
	efConstruction := int(binary.LittleEndian.Uint32(header[10:14]))
	precision := precisionFromByte(header[14])
	count := int(binary.LittleEndian.Uint32(header[15:19]))
	entrypoint := binary.LittleEndian.Uint32(header[19:23])
	maxLevel := int(int32(binary.LittleEndian.Uint32(header[23:27])))

	if wantDim != 0 && dim != wantDim {
		return nil, fmt.Errorf("artifact dimension %d does not match configured dimension %d: %w",
			dim, wantDim, vecerr.ErrDimensionMismatch)
	}

	compressed, err := persistence.ReadFrame(r, persistence.SectionGraph)
	if err != nil {
		return nil, fmt.Errorf("read graph frame: %w (%w)", err, vecerr.ErrCorruptArtifact)
	}
	raw, err := s2.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress graph frame: %w (%w)", err, vecerr.ErrCorruptArtifact)
	}

	var payload snapshotPayload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode graph payload: %w (%w)", err, vecerr.ErrCorruptArtifact)
	}
	if payload.Store == nil {
		return nil, fmt.Errorf("missing store block: %w", vecerr.ErrCorruptArtifact)
	}
	if payload.Store.Dim != dim || string(precision) != payload.Store.Precision || payload.Store.Count != count {
		return nil, fmt.Errorf("header and store block disagree: %w", vecerr.ErrCorruptArtifact)
	}

	st, err := store.FromSnapshot(payload.Store)
	if err != nil {
		return nil, err
	}

	h, err := New(st, Config{M: m, EfConstruction: efConstruction})
	if err != nil {
		return nil, fmt.Errorf("artifact parameters rejected: %w", vecerr.ErrCorruptArtifact)
	}

	if len(payload.Levels) != count || len(payload.Connections) != count {
		return nil, fmt.Errorf("graph arrays disagree with count %d: %w", count, vecerr.ErrCorruptArtifact)
	}

	h.nodes = make([]*Node, count)
	for i := 0; i < count; i++ {
		h.nodes[i] = &Node{
			Level:       int(payload.Levels[i]),
			Connections: payload.Connections[i],
		}
	}
	h.entrypoint = entrypoint
	h.maxLevel = maxLevel

	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// validate checks the structural invariants of a freshly loaded graph:
// entry point in range and at the top layer, adjacency ids in range, layer
// containment (a neighbor listed at layer l participates in layer l), and
// per-layer connection caps.
func (h *Index) validate() error {
	count := len(h.nodes)
	if count == 0 {
		if h.maxLevel != -1 {
			return fmt.Errorf("empty graph with max level %d: %w", h.maxLevel, vecerr.ErrCorruptArtifact)
		}
		return nil
	}

	if int(h.entrypoint) >= count {
		return fmt.Errorf("entry point %d out of range: %w", h.entrypoint, vecerr.ErrCorruptArtifact)
	}
	if h.nodes[h.entrypoint].Level != h.maxLevel {
		return fmt.Errorf("entry point level %d below top layer %d: %w",
			h.nodes[h.entrypoint].Level, h.maxLevel, vecerr.ErrCorruptArtifact)
	}

	for id, node := range h.nodes {
		if node.Level < 0 || node.Level > h.maxLevel {
			return fmt.Errorf("node %d level %d outside [0,%d]: %w", id, node.Level, h.maxLevel, vecerr.ErrCorruptArtifact)
		}
		if len(node.Connections) != node.Level+1 {
			return fmt.Errorf("node %d has %d layers for level %d: %w",
				id, len(node.Connections), node.Level, vecerr.ErrCorruptArtifact)
		}
		for level, conns := range node.Connections {
			maxConns := h.m
			if level == 0 {
				maxConns = h.mMax0
			}
			if len(conns) > maxConns {
				return fmt.Errorf("node %d exceeds cap at layer %d (%d > %d): %w",
					id, level, len(conns), maxConns, vecerr.ErrCorruptArtifact)
			}
			for _, nb := range conns {
				if int(nb) >= count {
					return fmt.Errorf("node %d references %d out of range at layer %d: %w",
						id, nb, level, vecerr.ErrCorruptArtifact)
				}
				if nb == uint32(id) {
					return fmt.Errorf("node %d links to itself at layer %d: %w", id, level, vecerr.ErrCorruptArtifact)
				}
				if h.nodes[nb].Level < level {
					return fmt.Errorf("node %d links to %d above its level at layer %d: %w",
						id, nb, level, vecerr.ErrCorruptArtifact)
				}
			}
		}
	}
	return nil
}

package hnsw

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/vectorwise/vectorwise/pkg/core/store"
	"github.com/vectorwise/vectorwise/pkg/core/vecerr"
	"github.com/vectorwise/vectorwise/pkg/persistence"
)

func buildSnapshotIndex(t *testing.T, prec store.Precision) (*Index, [][]float32) {
	t.Helper()
	st, err := store.New(8, prec)
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	h, err := New(st, Config{M: 8, EfConstruction: 50, Seed: 21})
	if err != nil {
		t.Fatalf("hnsw.New failed: %v", err)
	}
	vecs := unitVectors(150, 8, 22)
	for i, v := range vecs {
		if _, err := h.Insert(v); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}
	return h, vecs
}

func TestSnapshotRoundtrip(t *testing.T) {
	for _, prec := range []store.Precision{store.Float32, store.Float16} {
		t.Run(string(prec), func(t *testing.T) {
			h, _ := buildSnapshotIndex(t, prec)

			var buf bytes.Buffer
			if err := h.WriteSnapshot(&buf); err != nil {
				t.Fatalf("WriteSnapshot failed: %v", err)
			}

			loaded, err := ReadSnapshot(bytes.NewReader(buf.Bytes()), 8)
			if err != nil {
				t.Fatalf("ReadSnapshot failed: %v", err)
			}

			if loaded.Count() != h.Count() || loaded.MaxLevel() != h.MaxLevel() {
				t.Fatalf("loaded index = %d vectors / top layer %d, want %d / %d",
					loaded.Count(), loaded.MaxLevel(), h.Count(), h.MaxLevel())
			}
			if loaded.M() != h.M() || loaded.EfConstruction() != h.EfConstruction() {
				t.Fatalf("loaded parameters M=%d ef=%d, want M=%d ef=%d",
					loaded.M(), loaded.EfConstruction(), h.M(), h.EfConstruction())
			}
			if loaded.Store().Precision() != prec {
				t.Fatalf("loaded precision %s, want %s", loaded.Store().Precision(), prec)
			}

			// Searches over the loaded graph must match the original exactly:
			// same topology, same vectors, same traversal.
			queries := unitVectors(20, 8, 23)
			for i, q := range queries {
				want, err := h.Search(q, 5, 50)
				if err != nil {
					t.Fatalf("original Search failed: %v", err)
				}
				got, err := loaded.Search(q, 5, 50)
				if err != nil {
					t.Fatalf("loaded Search failed: %v", err)
				}
				if !reflect.DeepEqual(want, got) {
					t.Fatalf("query %d diverged after reload:\noriginal: %v\nloaded:   %v", i, want, got)
				}
			}
		})
	}
}

// Loading the same artifact twice must produce identical indexes.
func TestSnapshotLoadIsIdempotent(t *testing.T) {
	h, _ := buildSnapshotIndex(t, store.Float32)

	var buf bytes.Buffer
	if err := h.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	first, err := ReadSnapshot(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("first ReadSnapshot failed: %v", err)
	}
	second, err := ReadSnapshot(bytes.NewReader(buf.Bytes()), 0)
	if err != nil {
		t.Fatalf("second ReadSnapshot failed: %v", err)
	}

	q := unitVectors(1, 8, 24)[0]
	a, _ := first.Search(q, 10, 50)
	b, _ := second.Search(q, 10, 50)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two loads of the same artifact search differently:\n%v\n%v", a, b)
	}
}

func TestReadSnapshotDimensionMismatch(t *testing.T) {
	h, _ := buildSnapshotIndex(t, store.Float32)
	var buf bytes.Buffer
	if err := h.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	_, err := ReadSnapshot(bytes.NewReader(buf.Bytes()), 128)
	if !errors.Is(err, vecerr.ErrDimensionMismatch) {
		t.Fatalf("wrong wantDim error = %v, want ErrDimensionMismatch", err)
	}
}

func TestReadSnapshotEmptyIndex(t *testing.T) {
	st, _ := store.New(4, store.Float32)
	h, _ := New(st, Config{M: 8, EfConstruction: 50, Seed: 25})

	var buf bytes.Buffer
	if err := h.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot of empty index failed: %v", err)
	}
	loaded, err := ReadSnapshot(bytes.NewReader(buf.Bytes()), 4)
	if err != nil {
		t.Fatalf("ReadSnapshot of empty index failed: %v", err)
	}
	if loaded.Count() != 0 || loaded.MaxLevel() != -1 {
		t.Errorf("empty index loaded as %d vectors / top layer %d", loaded.Count(), loaded.MaxLevel())
	}
}

func TestReadSnapshotCorruption(t *testing.T) {
	h, _ := buildSnapshotIndex(t, store.Float32)
	var buf bytes.Buffer
	if err := h.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}
	artifact := buf.Bytes()

	t.Run("truncated", func(t *testing.T) {
		_, err := ReadSnapshot(bytes.NewReader(artifact[:len(artifact)/2]), 8)
		if !errors.Is(err, vecerr.ErrCorruptArtifact) {
			t.Errorf("truncated artifact error = %v, want ErrCorruptArtifact", err)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := bytes.Clone(artifact)
		bad[0] ^= 0xFF
		_, err := ReadSnapshot(bytes.NewReader(bad), 8)
		if !errors.Is(err, vecerr.ErrCorruptArtifact) {
			t.Errorf("bad magic error = %v, want ErrCorruptArtifact", err)
		}
	})

	t.Run("flipped payload bit", func(t *testing.T) {
		bad := bytes.Clone(artifact)
		// Flip a byte inside the graph frame payload; CRC must catch it.
		bad[len(bad)-1] ^= 0x01
		_, err := ReadSnapshot(bytes.NewReader(bad), 8)
		if !errors.Is(err, vecerr.ErrCorruptArtifact) {
			t.Errorf("flipped bit error = %v, want ErrCorruptArtifact", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ReadSnapshot(bytes.NewReader([]byte("not an artifact at all")), 8)
		if !errors.Is(err, vecerr.ErrCorruptArtifact) {
			t.Errorf("garbage stream error = %v, want ErrCorruptArtifact", err)
		}
	})

	t.Run("self link", func(t *testing.T) {
		// Rebuild an artifact whose graph payload links a node to itself.
		header, err := persistence.ReadFrame(bytes.NewReader(artifact), persistence.SectionHeader)
		if err != nil {
			t.Fatalf("reading header back failed: %v", err)
		}

		h2, _ := buildSnapshotIndex(t, store.Float32)
		h2.nodes[3].Connections[0][0] = 3

		var tampered bytes.Buffer
		if err := persistence.WriteFrame(&tampered, persistence.SectionHeader, header); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
		var full bytes.Buffer
		if err := h2.WriteSnapshot(&full); err != nil {
			t.Fatalf("WriteSnapshot failed: %v", err)
		}
		// Skip h2's header frame, keep its graph frame.
		r := bytes.NewReader(full.Bytes())
		if _, err := persistence.ReadFrame(r, persistence.SectionHeader); err != nil {
			t.Fatalf("skipping header failed: %v", err)
		}
		graph, err := persistence.ReadFrame(r, persistence.SectionGraph)
		if err != nil {
			t.Fatalf("reading graph frame failed: %v", err)
		}
		if err := persistence.WriteFrame(&tampered, persistence.SectionGraph, graph); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}

		_, err = ReadSnapshot(bytes.NewReader(tampered.Bytes()), 8)
		if !errors.Is(err, vecerr.ErrCorruptArtifact) {
			t.Errorf("self-link artifact error = %v, want ErrCorruptArtifact", err)
		}
	})
}

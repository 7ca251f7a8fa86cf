// Package persistence implements the binary framing used by index artifacts.
// Each frame carries a magic byte, a section code, a payload length, and a
// CRC32 checksum, so a truncated or bit-flipped artifact is detected before
// any of its content is trusted.
package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

const (
	// MagicByte marks the start of a valid frame.
	MagicByte = 0xD7

	// HeaderSize is the fixed frame metadata size:
	// 1 (magic) + 1 (section) + 4 (length) + 4 (crc32) = 10 bytes.
	HeaderSize = 10

	// SectionHeader is the artifact header frame (parameters and counts).
	SectionHeader = 0x01
	// SectionGraph is the compressed graph-and-vectors frame.
	SectionGraph = 0x02
)

var (
	// ErrInvalidMagic indicates the stream is not a valid artifact or lost sync.
	ErrInvalidMagic = errors.New("invalid magic byte")
	// ErrChecksumMismatch indicates payload corruption.
	ErrChecksumMismatch = errors.New("crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the stream ended inside a frame.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrUnexpectedSection indicates a frame of the wrong section code.
	ErrUnexpectedSection = errors.New("unexpected section")
)

// WriteFrame encodes payload as one frame and writes it.
// Layout: [Magic(1)][Section(1)][Length(4)][CRC(4)][Payload(N)].
func WriteFrame(w io.Writer, section byte, payload []byte) error {
	header := make([]byte, HeaderSize)
	header[0] = MagicByte
	header[1] = section
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[6:10], crc32.ChecksumIEEE(payload))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads the next frame, validating magic, section, and checksum.
func ReadFrame(r io.Reader, wantSection byte) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, ErrIncompleteFrame
	}

	if header[0] != MagicByte {
		return nil, ErrInvalidMagic
	}
	if header[1] != wantSection {
		return nil, ErrUnexpectedSection
	}

	length := binary.LittleEndian.Uint32(header[2:6])
	wantCRC := binary.LittleEndian.Uint32(header[6:10])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ErrIncompleteFrame
	}
	if crc32.ChecksumIEEE(payload) != wantCRC {
		return nil, ErrChecksumMismatch
	}
	return payload, nil
}

package persistence

import (
	"bytes"
	"io"
	"testing"
)

func TestFrameRoundtrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xAB}, 1<<16),
	}
	for _, payload := range payloads {
		var buf bytes.Buffer
		if err := WriteFrame(&buf, SectionHeader, payload); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
		if buf.Len() != HeaderSize+len(payload) {
			t.Errorf("frame size = %d, want %d", buf.Len(), HeaderSize+len(payload))
		}

		got, err := ReadFrame(&buf, SectionHeader)
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("payload changed through the roundtrip: %d bytes -> %d bytes", len(payload), len(got))
		}
	}
}

func TestFrameSequence(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, SectionHeader, []byte("header")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if err := WriteFrame(&buf, SectionGraph, []byte("graph")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	first, err := ReadFrame(&buf, SectionHeader)
	if err != nil {
		t.Fatalf("first ReadFrame failed: %v", err)
	}
	second, err := ReadFrame(&buf, SectionGraph)
	if err != nil {
		t.Fatalf("second ReadFrame failed: %v", err)
	}
	if string(first) != "header" || string(second) != "graph" {
		t.Errorf("frames out of order: %q, %q", first, second)
	}

	if _, err := ReadFrame(&buf, SectionHeader); err != io.EOF {
		t.Errorf("read past the end: got %v, want io.EOF", err)
	}
}

func TestReadFrameErrors(t *testing.T) {
	frame := func() []byte {
		var buf bytes.Buffer
		WriteFrame(&buf, SectionGraph, []byte("payload"))
		return buf.Bytes()
	}

	t.Run("invalid magic", func(t *testing.T) {
		data := frame()
		data[0] = 0x00
		if _, err := ReadFrame(bytes.NewReader(data), SectionGraph); err != ErrInvalidMagic {
			t.Errorf("got %v, want ErrInvalidMagic", err)
		}
	})

	t.Run("unexpected section", func(t *testing.T) {
		if _, err := ReadFrame(bytes.NewReader(frame()), SectionHeader); err != ErrUnexpectedSection {
			t.Errorf("got %v, want ErrUnexpectedSection", err)
		}
	})

	t.Run("corrupted payload", func(t *testing.T) {
		data := frame()
		data[len(data)-1] ^= 0xFF
		if _, err := ReadFrame(bytes.NewReader(data), SectionGraph); err != ErrChecksumMismatch {
			t.Errorf("got %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("corrupted crc field", func(t *testing.T) {
		data := frame()
		data[6] ^= 0xFF
		if _, err := ReadFrame(bytes.NewReader(data), SectionGraph); err != ErrChecksumMismatch {
			t.Errorf("got %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("truncated payload", func(t *testing.T) {
		data := frame()
		if _, err := ReadFrame(bytes.NewReader(data[:len(data)-3]), SectionGraph); err != ErrIncompleteFrame {
			t.Errorf("got %v, want ErrIncompleteFrame", err)
		}
	})

	t.Run("truncated header", func(t *testing.T) {
		data := frame()
		if _, err := ReadFrame(bytes.NewReader(data[:5]), SectionGraph); err != ErrIncompleteFrame {
			t.Errorf("got %v, want ErrIncompleteFrame", err)
		}
	})
}

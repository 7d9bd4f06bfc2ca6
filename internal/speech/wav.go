package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// Joiner concatenates audio files, in order, into dst.
type Joiner interface {
	Join(ctx context.Context, dst string, parts ...string) error
}

var (
	ErrNotWAV         = errors.New("not a RIFF/WAVE file")
	ErrFormatMismatch = errors.New("wav formats differ")
)

// WAVJoiner appends PCM payloads of WAV files that share one fmt chunk.
type WAVJoiner struct{}

type wavFile struct {
	format []byte
	data   []byte
}

func (WAVJoiner) Join(ctx context.Context, dst string, parts ...string) error {
	if len(parts) == 0 {
		return errors.New("nothing to join")
	}
	var (
		format []byte
		data   bytes.Buffer
	)
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		w, err := parseWAV(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if format == nil {
			format = w.format
		} else if !bytes.Equal(format, w.format) {
			return fmt.Errorf("%s: %w", p, ErrFormatMismatch)
		}
		data.Write(w.data)
	}
	return os.WriteFile(dst, encodeWAV(format, data.Bytes()), 0o644)
}

// parseWAV reads the fmt and data chunks. A data size larger than what is
// left in the file (streamed output) is clamped to the remainder.
func parseWAV(b []byte) (wavFile, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return wavFile{}, ErrNotWAV
	}
	var w wavFile
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += 8
		if size > len(b)-off || size < 0 {
			size = len(b) - off
		}
		body := b[off : off+size]
		switch id {
		case "fmt ":
			w.format = body
		case "data":
			w.data = body
		}
		off += size + size%2
	}
	if w.format == nil || w.data == nil {
		return wavFile{}, fmt.Errorf("%w: missing fmt or data chunk", ErrNotWAV)
	}
	return w, nil
}

func encodeWAV(format, data []byte) []byte {
	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteString("RIFF")
	binary.Write(&b, le, uint32(4+8+len(format)+8+len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, le, uint32(len(format)))
	b.Write(format)
	b.WriteString("data")
	binary.Write(&b, le, uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

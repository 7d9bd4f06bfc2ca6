package speech

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Synthesizer is the piece of Client that SynthesizeLong needs.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// LongForm synthesizes text of any length: sentence-bounded chunks are
// voiced one at a time and folded into a running concatenation on disk.
type LongForm struct {
	TTS      Synthesizer
	Joiner   Joiner
	MaxChars int
	Voice    string
	Format   string
	// TempDir is where chunk files live; empty means the OS default.
	TempDir string
	Log     *logrus.Entry
}

// JoinerFor picks the WAV joiner for wav output and ffmpeg for the rest.
func JoinerFor(format string, useFFmpeg bool) Joiner {
	if useFFmpeg || !strings.EqualFold(format, "wav") {
		return FFmpegJoiner{}
	}
	return WAVJoiner{}
}

// Speak is SynthesizeLong with per-call voice and format overrides. A WAV
// joiner is swapped for ffmpeg when the format changes away from wav.
func (l *LongForm) Speak(ctx context.Context, text, voice, format string) ([]byte, error) {
	c := *l
	if voice != "" {
		c.Voice = voice
	}
	if format != "" {
		c.Format = format
		if _, ok := c.Joiner.(FFmpegJoiner); !ok {
			c.Joiner = JoinerFor(format, false)
		}
	}
	return c.SynthesizeLong(ctx, text)
}

// SynthesizeLong returns the audio for text. Every temporary file is removed
// before it returns, whether it succeeds or not.
func (l *LongForm) SynthesizeLong(ctx context.Context, text string) ([]byte, error) {
	log := l.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	format := l.Format
	if format == "" {
		format = DefaultFormat
	}

	chunks := SplitSentences(text, l.MaxChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to synthesize")
	}
	if len(chunks) == 1 {
		return l.TTS.Synthesize(ctx, Request{Input: chunks[0], Voice: l.Voice, Format: format})
	}
	log.WithField("chunks", len(chunks)).Info("text split for synthesis")

	dir, err := os.MkdirTemp(l.TempDir, "speech-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	ext := "." + strings.ToLower(format)
	var running string
	for i, chunk := range chunks {
		audio, err := l.TTS.Synthesize(ctx, Request{Input: chunk, Voice: l.Voice, Format: format})
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}
		part, err := writeTemp(dir, "chunk-*"+ext, audio)
		if err != nil {
			return nil, err
		}
		if running == "" {
			running = part
			continue
		}

		next, err := reserveTemp(dir, "joined-*"+ext)
		if err != nil {
			return nil, err
		}
		if err := l.Joiner.Join(ctx, next, running, part); err != nil {
			return nil, fmt.Errorf("join chunk %d: %w", i+1, err)
		}
		os.Remove(running)
		os.Remove(part)
		running = next
		log.WithField("chunk", i+1).Debug("chunk folded into running audio")
	}
	return os.ReadFile(running)
}

func writeTemp(dir, pattern string, b []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return "", err
	}
	return f.Name(), f.Close()
}

func reserveTemp(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

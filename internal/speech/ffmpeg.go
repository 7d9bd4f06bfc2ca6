package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpegJoiner concatenates any container ffmpeg can stream-copy (mp3, ogg,
// flac, ...) with the concat demuxer.
type FFmpegJoiner struct {
	// Binary defaults to "ffmpeg" on PATH.
	Binary string
}

// Join writes a concat list next to dst and stream-copies parts into dst.
// Cancelling ctx kills the ffmpeg process.
func (j FFmpegJoiner) Join(ctx context.Context, dst string, parts ...string) error {
	if len(parts) == 0 {
		return fmt.Errorf("nothing to join")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	list, err := os.CreateTemp(filepath.Dir(dst), "concat-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(list.Name())

	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			list.Close()
			return err
		}
		fmt.Fprintf(list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := list.Close(); err != nil {
		return err
	}

	bin := j.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	var stderr bytes.Buffer
	cmd := concatCmd(bin, list.Name(), dst)
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg concat failed: %w: %s", err, tail(stderr.String(), 512))
		}
		return nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

func concatCmd(bin, list, dst string) *exec.Cmd {
	return ffmpeg.Input(list, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(dst, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().
		SetFfmpegPath(bin).
		Compile()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

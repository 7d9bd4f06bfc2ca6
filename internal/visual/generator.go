// Package visual turns a transcript into one visual description per segment by
// asking a language model, chunk by chunk, under a token budget.
package visual

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"echoframe-go/internal/llm"
	"echoframe-go/internal/ratelimit"
	"echoframe-go/internal/repair"
	"echoframe-go/internal/types"
)

// ChunkError wraps the failure of one chunk. It aborts the whole transcript.
type ChunkError struct {
	Index  int // zero-based
	Chunks int
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d of %d: %v", e.Index+1, e.Chunks, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Result is what Generate produced for one transcript.
type Result struct {
	Descriptions []types.VisualDescriptionSegment
	Warning      string
	Chunks       int
	ChunkSize    int
}

// Generator turns a transcript into visual descriptions, one completion per
// chunk, with every call admitted through the shared token Window.
type Generator struct {
	LLM         llm.Completer
	Window      *ratelimit.Window
	Params      PlannerParams
	Tolerance   int
	// ChunkSize forces a fixed chunk size (clamped to the planner ceiling)
	// instead of the balanced plan when positive.
	ChunkSize   int
	Model       string
	// Temperature is left to the client default when nil.
	Temperature *float32
	Log         *logrus.Entry
}

// New returns a generator with the default planner and tolerance.
func New(completer llm.Completer, window *ratelimit.Window, log *logrus.Entry) *Generator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Generator{
		LLM:       completer,
		Window:    window,
		Params:    DefaultPlannerParams(),
		Tolerance: DefaultTolerance,
		Log:       log.WithField("component", "visual"),
	}
}

// Generate processes the transcript sequentially. Any chunk failure (provider
// error or rejected response) returns a *ChunkError and discards everything
// produced so far. An empty transcript returns an empty result without calls.
func (g *Generator) Generate(ctx context.Context, transcript []types.TranscriptSegment) (*Result, error) {
	n := len(transcript)
	if n == 0 {
		return &Result{Descriptions: []types.VisualDescriptionSegment{}}, nil
	}

	size := PlanChunkSize(n, g.Params)
	if g.ChunkSize > 0 {
		size = min(g.ChunkSize, g.Params.SegmentsPerChunk())
	}
	chunks := SplitChunks(transcript, size)
	log := g.Log.WithFields(logrus.Fields{"segments": n, "chunks": len(chunks), "chunk_size": size})
	log.Info("dynamic chunking planned")

	parts := make([][]types.VisualDescriptionSegment, 0, len(chunks))
	for i, chunk := range chunks {
		descs, err := g.chunk(ctx, chunk, log.WithField("chunk", i+1))
		if err != nil {
			return nil, &ChunkError{Index: i, Chunks: len(chunks), Err: err}
		}
		parts = append(parts, descs)
	}

	re, err := Reassemble(parts, n, g.Tolerance)
	if err != nil {
		log.WithError(err).Error("reassembly failed")
		return nil, err
	}
	if re.Warning != "" {
		log.Warn(re.Warning)
	}
	return &Result{Descriptions: re.Descriptions, Warning: re.Warning, Chunks: len(chunks), ChunkSize: size}, nil
}

func (g *Generator) chunk(ctx context.Context, chunk []types.TranscriptSegment, log *logrus.Entry) ([]types.VisualDescriptionSegment, error) {
	prompt := BuildPrompt(chunk)
	maxOut := g.Params.MaxOutputTokens

	if g.Window != nil {
		waited, err := g.Window.Admit(ctx, ratelimit.EstimateTokens(prompt, maxOut))
		if err != nil {
			return nil, err
		}
		if waited > 0 {
			log.WithField("waited_s", waited.Seconds()).Info("admitted after waiting for token budget")
		}
	}

	resp, err := g.LLM.Complete(ctx, llm.Request{
		Model:       g.Model,
		User:        prompt,
		Temperature: g.Temperature,
		MaxTokens:   maxOut,
	})
	if err != nil {
		return nil, err
	}

	descs, err := repair.ParseVisualDescriptions(resp.Text)
	if err != nil {
		log.WithError(err).WithField("response_len", len(resp.Text)).Error("response rejected")
		return nil, err
	}
	log.WithField("descriptions", len(descs)).Debug("chunk validated")
	return descs, nil
}

package visual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoframe-go/internal/llm"
	"echoframe-go/internal/logger"
	"echoframe-go/internal/ratelimit"
	"echoframe-go/internal/repair"
	"echoframe-go/internal/types"
)

func transcript(n int) []types.TranscriptSegment {
	out := make([]types.TranscriptSegment, n)
	for i := range out {
		out[i] = types.TranscriptSegment{
			StartTime: fmt.Sprintf("00:%02d:%02d", i/60, i%60),
			EndTime:   fmt.Sprintf("00:%02d:%02d", (i+1)/60, (i+1)%60),
			Text:      fmt.Sprintf("line %d", i),
		}
	}
	return out
}

// echoLLM answers each prompt with one description per transcript segment it
// finds in the prompt. reply can rewrite the answer per call.
type echoLLM struct {
	calls   int
	sizes   []int
	reply   func(call int, segs []types.TranscriptSegment) (string, error)
	prompts []string
}

func (e *echoLLM) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	e.calls++
	e.prompts = append(e.prompts, req.User)

	body := req.User[strings.Index(req.User, "Transcript segments:\n")+len("Transcript segments:\n"):]
	body = body[:strings.Index(body, "\n\nGenerate visual descriptions")]
	var segs []types.TranscriptSegment
	if err := json.Unmarshal([]byte(body), &segs); err != nil {
		return nil, err
	}
	e.sizes = append(e.sizes, len(segs))

	if e.reply != nil {
		text, err := e.reply(e.calls, segs)
		if err != nil {
			return nil, err
		}
		return &llm.Completion{Text: text}, nil
	}
	return &llm.Completion{Text: describe(segs)}, nil
}

func describe(segs []types.TranscriptSegment) string {
	out := make([]types.VisualDescriptionSegment, len(segs))
	for i, s := range segs {
		out[i] = types.VisualDescriptionSegment{StartTime: s.StartTime, EndTime: s.EndTime, Description: "shows " + s.Text}
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func newGenerator(l llm.Completer) *Generator {
	g := New(l, nil, logger.Discard().Entry)
	g.Params.MaxOutputTokens = 8192
	return g
}

func TestPlanChunkSize(t *testing.T) {
	p := DefaultPlannerParams()
	tests := []struct {
		n, want int
	}{
		{1, 1},
		{50, 50},
		{51, 26},
		{120, 40},
		{1000, 50},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			got := PlanChunkSize(tt.n, p)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 1)
			assert.LessOrEqual(t, got, p.MaxSegmentsPerChunk)
		})
	}
}

func TestSegmentsPerChunkFromContextWindow(t *testing.T) {
	p := PlannerParams{ContextWindow: 2000, MaxOutputTokens: 500, PromptOverhead: 300, TokensPerSegment: 40, MaxSegmentsPerChunk: 50}
	assert.Equal(t, 30, p.SegmentsPerChunk())

	p.ContextWindow = 100
	assert.Equal(t, 1, p.SegmentsPerChunk())
}

func TestSplitChunksPartitionsExactly(t *testing.T) {
	items := transcript(120)
	for _, size := range []int{1, 7, 40, 50, 120, 500} {
		chunks := SplitChunks(items, size)
		assert.Len(t, chunks, (len(items)+size-1)/size)

		var flat []types.TranscriptSegment
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), size)
			flat = append(flat, c...)
		}
		assert.Equal(t, items, flat)
	}
	assert.Empty(t, SplitChunks([]int{}, 10))
}

func TestSplitChunksFixedFifty(t *testing.T) {
	chunks := SplitChunks(transcript(120), 50)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{50, 50, 20}, []int{len(chunks[0]), len(chunks[1]), len(chunks[2])})
}

func TestReassemble(t *testing.T) {
	mk := func(n int) []types.VisualDescriptionSegment { return make([]types.VisualDescriptionSegment, n) }

	re, err := Reassemble([][]types.VisualDescriptionSegment{mk(50), mk(50)}, 100, 3)
	require.NoError(t, err)
	assert.Len(t, re.Descriptions, 100)
	assert.Empty(t, re.Warning)

	re, err = Reassemble([][]types.VisualDescriptionSegment{mk(50), mk(48)}, 100, 3)
	require.NoError(t, err)
	assert.Len(t, re.Descriptions, 98)
	assert.NotEmpty(t, re.Warning)

	re, err = Reassemble([][]types.VisualDescriptionSegment{mk(52), mk(51)}, 100, 3)
	require.NoError(t, err)
	assert.Len(t, re.Descriptions, 103)

	_, err = Reassemble([][]types.VisualDescriptionSegment{mk(50), mk(40)}, 100, 3)
	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, 100, mm.Expected)
	assert.Equal(t, 90, mm.Actual)
}

func TestGenerateEmptyTranscriptMakesNoCalls(t *testing.T) {
	l := &echoLLM{}
	res, err := newGenerator(l).Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Descriptions)
	assert.Zero(t, l.calls)
}

func TestGenerateFixedChunkSizeKeepsOrder(t *testing.T) {
	l := &echoLLM{}
	g := newGenerator(l)
	g.ChunkSize = 50

	in := transcript(120)
	res, err := g.Generate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []int{50, 50, 20}, l.sizes)
	require.Len(t, res.Descriptions, 120)
	for i, d := range res.Descriptions {
		assert.Equal(t, in[i].StartTime, d.StartTime)
		assert.Equal(t, "shows "+in[i].Text, d.Description)
	}
	assert.Empty(t, res.Warning)
}

func TestGenerateBalancedPlan(t *testing.T) {
	l := &echoLLM{}
	res, err := newGenerator(l).Generate(context.Background(), transcript(120))
	require.NoError(t, err)
	assert.Equal(t, []int{40, 40, 40}, l.sizes)
	assert.Equal(t, 3, res.Chunks)
	assert.Len(t, res.Descriptions, 120)
}

func TestGenerateToleratesSmallMismatch(t *testing.T) {
	l := &echoLLM{reply: func(call int, segs []types.TranscriptSegment) (string, error) {
		if call == 1 {
			segs = segs[:len(segs)-2]
		}
		return describe(segs), nil
	}}
	g := newGenerator(l)
	g.ChunkSize = 50

	res, err := g.Generate(context.Background(), transcript(100))
	require.NoError(t, err)
	assert.Len(t, res.Descriptions, 98)
	assert.NotEmpty(t, res.Warning)
}

func TestGenerateFailsOnLargeMismatch(t *testing.T) {
	l := &echoLLM{reply: func(call int, segs []types.TranscriptSegment) (string, error) {
		if call == 2 {
			segs = segs[:40]
		}
		return describe(segs), nil
	}}
	g := newGenerator(l)
	g.ChunkSize = 50

	_, err := g.Generate(context.Background(), transcript(100))
	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, 90, mm.Actual)
}

func TestGenerateAbortsOnFirstBadChunk(t *testing.T) {
	l := &echoLLM{reply: func(call int, segs []types.TranscriptSegment) (string, error) {
		if call == 2 {
			return `{"oops": true}`, nil
		}
		return describe(segs), nil
	}}
	g := newGenerator(l)
	g.ChunkSize = 50

	_, err := g.Generate(context.Background(), transcript(120))
	var ce *ChunkError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.Index)
	assert.True(t, repair.IsReason(err, repair.ReasonNotArray))
	assert.Equal(t, 2, l.calls, "no call after the failing chunk")
}

func TestGenerateSurfacesProviderError(t *testing.T) {
	perr := &llm.ProviderError{StatusCode: 500, Body: "boom"}
	l := &echoLLM{reply: func(int, []types.TranscriptSegment) (string, error) { return "", perr }}

	_, err := newGenerator(l).Generate(context.Background(), transcript(3))
	var got *llm.ProviderError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 500, got.StatusCode)
}

func TestGenerateConsultsRateLimiter(t *testing.T) {
	var slept []time.Duration
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := ratelimit.New(10000,
		ratelimit.WithClock(
			func() time.Time { return now },
			func(_ context.Context, d time.Duration) error { slept = append(slept, d); now = now.Add(d); return nil },
		))

	l := &echoLLM{}
	g := newGenerator(l)
	g.Window = w
	g.ChunkSize = 10

	_, err := g.Generate(context.Background(), transcript(20))
	require.NoError(t, err)
	assert.Equal(t, 2, l.calls)
	// each request estimates over 8192 tokens, so the second waits a full window
	assert.Equal(t, []time.Duration{ratelimit.Span}, slept)
}

func TestBuildPromptEmbedsSegments(t *testing.T) {
	p := BuildPrompt(transcript(2))
	assert.Contains(t, p, `"text": "line 1"`)
	assert.Contains(t, p, "Return exactly 2 elements")
}

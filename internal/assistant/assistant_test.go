package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoframe-go/internal/llm"
	"echoframe-go/internal/logger"
)

type scriptedLLM struct {
	reqs []llm.Request
	fail map[string]error
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	s.reqs = append(s.reqs, req)
	for marker, err := range s.fail {
		if strings.Contains(req.User, marker) {
			return nil, err
		}
	}
	return &llm.Completion{Text: "  answer for: " + req.User + "\n"}, nil
}

func newAssistant(fake *scriptedLLM) *Assistant {
	return New(fake, "test-model", logger.Discard().Entry)
}

func TestTranslatePrompt(t *testing.T) {
	fake := &scriptedLLM{}
	got, err := newAssistant(fake).Translate(context.Background(), "Good morning", "German")
	require.NoError(t, err)

	require.Len(t, fake.reqs, 1)
	assert.Equal(t, "Translate the following English text to German:\nGood morning", fake.reqs[0].User)
	assert.Empty(t, fake.reqs[0].System)
	assert.Equal(t, "test-model", fake.reqs[0].Model)
	assert.Equal(t, "answer for: "+fake.reqs[0].User, got)
}

func TestTranslateManyRecordsPerLanguageFailure(t *testing.T) {
	fake := &scriptedLLM{fail: map[string]error{
		"to Latin": &llm.ProviderError{StatusCode: 500, Body: "boom"},
	}}
	out, err := newAssistant(fake).TranslateMany(context.Background(), "Hello", []string{"Hindi", "Latin", "Italian"})
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"Hindi", "Latin", "Italian"}, []string{out[0].Language, out[1].Language, out[2].Language})
	assert.NotEmpty(t, out[0].Text)
	assert.Empty(t, out[1].Text)
	assert.Contains(t, out[1].Error, "status 500")
	assert.NotEmpty(t, out[2].Text)
	assert.Len(t, fake.reqs, 3)
}

func TestTranslateManyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := &scriptedLLM{}
	out, err := newAssistant(fake).TranslateMany(ctx, "Hello", []string{"Hindi"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
	assert.Empty(t, fake.reqs)
}

func TestSummarizeAndAsk(t *testing.T) {
	fake := &scriptedLLM{}
	a := newAssistant(fake)

	_, err := a.Summarize(context.Background(), "long text")
	require.NoError(t, err)
	_, err = a.Ask(context.Background(), "What is Go?")
	require.NoError(t, err)

	require.Len(t, fake.reqs, 2)
	assert.Equal(t, "You are a helpful summarizer.", fake.reqs[0].System)
	assert.Equal(t, "Summarize this:\n\nlong text", fake.reqs[0].User)
	assert.Equal(t, "You are a helpful assistant.", fake.reqs[1].System)
	assert.Equal(t, "What is Go?", fake.reqs[1].User)
}

func TestBlankInputMakesNoCall(t *testing.T) {
	fake := &scriptedLLM{}
	a := newAssistant(fake)
	ctx := context.Background()

	_, err := a.Ask(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = a.Summarize(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = a.TranslateMany(ctx, "\n", []string{"German"})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, fake.reqs)
}

func TestProviderErrorPassesThrough(t *testing.T) {
	perr := &llm.ProviderError{StatusCode: 429, Body: "slow down"}
	fake := &scriptedLLM{fail: map[string]error{"": perr}}
	_, err := newAssistant(fake).Ask(context.Background(), "hi")
	assert.ErrorIs(t, err, perr)
}

// Package assistant holds the one-shot language-model helpers behind the
// translate, summarize and ask endpoints.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"echoframe-go/internal/llm"
)

const (
	summarizerPrompt = "You are a helpful summarizer."
	assistantPrompt  = "You are a helpful assistant."
)

// ErrEmptyInput is returned before any call is made when the text or question is blank.
var ErrEmptyInput = errors.New("input text is empty")

// Translation is the outcome for one target language. Exactly one of Text
// and Error is set.
type Translation struct {
	Language string `json:"language"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Assistant struct {
	LLM   llm.Completer
	Model string
	Log   *logrus.Entry
}

func New(c llm.Completer, model string, log *logrus.Entry) *Assistant {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Assistant{LLM: c, Model: model, Log: log.WithField("component", "assistant")}
}

// Translate renders English text in language.
func (a *Assistant) Translate(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	if strings.TrimSpace(language) == "" {
		return "", errors.New("target language is empty")
	}
	prompt := fmt.Sprintf("Translate the following English text to %s:\n%s", language, text)
	return a.complete(ctx, "", prompt)
}

// TranslateMany translates text into each language in order. A failure for
// one language is recorded on its entry and the rest still run; only a
// cancelled context stops the loop early.
func (a *Assistant) TranslateMany(ctx context.Context, text string, languages []string) ([]Translation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	out := make([]Translation, 0, len(languages))
	for _, lang := range languages {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		t := Translation{Language: lang}
		res, err := a.Translate(ctx, text, lang)
		if err != nil {
			a.Log.WithError(err).WithField("language", lang).Warn("translation failed")
			t.Error = err.Error()
		} else {
			t.Text = res
		}
		out = append(out, t)
	}
	return out, nil
}

func (a *Assistant) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	return a.complete(ctx, summarizerPrompt, "Summarize this:\n\n"+text)
}

func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyInput
	}
	return a.complete(ctx, assistantPrompt, question)
}

func (a *Assistant) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.LLM.Complete(ctx, llm.Request{Model: a.Model, System: system, User: user})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

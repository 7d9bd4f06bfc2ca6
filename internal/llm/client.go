// Package llm sends chat completions to the OpenAI-compatible language-model
// endpoint. Nothing here retries: a failed call is returned to the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Request is one completion: an optional system prompt and one user message.
type Request struct {
	Model       string
	System      string
	User        string
	// Temperature overrides Options.Temperature when set, zero included.
	Temperature *float32
	MaxTokens   int
}

// Temp returns a pointer for Request.Temperature.
func Temp(v float32) *float32 { return &v }

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the generated text plus the provider's usage metadata.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Completer is the narrow interface the pipelines depend on.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// ProviderError is a call that reached the provider and was refused, or never
// got an answer. StatusCode is zero for transport failures.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("llm provider unreachable: %v", e.Err)
	}
	return fmt.Sprintf("llm provider status %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrEmptyResponse is returned when the provider answers without any choice.
var ErrEmptyResponse = errors.New("llm response has no choices")

type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// Defaults fill the zero fields of every Request.
	Model       string
	Temperature float32
	MaxTokens   int
}

type Client struct {
	api  *openai.Client
	opts Options
	log  *logrus.Entry
}

func New(opts Options, log *logrus.Entry) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		api:  openai.NewClientWithConfig(cfg),
		opts: opts,
		log:  log.WithField("component", "llm"),
	}
}

// Complete sends req and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	if req.Model == "" {
		req.Model = c.opts.Model
	}
	temperature := c.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
		if temperature == 0 {
			// a zero temperature is dropped from the request body by go-openai
			temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.opts.MaxTokens
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	log := c.log.WithFields(logrus.Fields{
		"model":      req.Model,
		"max_tokens": req.MaxTokens,
		"prompt_len": len(req.System) + len(req.User),
	})
	log.Debug("sending completion request")

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		perr := toProviderError(err)
		log.WithError(err).WithField("http_status", perr.StatusCode).Error("completion request failed")
		return nil, perr
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	out := &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	log.WithFields(logrus.Fields{
		"response_len":  len(out.Text),
		"total_tokens":  out.Usage.TotalTokens,
		"elapsed_ms":    time.Since(start).Milliseconds(),
		"finish_reason": string(resp.Choices[0].FinishReason),
	}).Info("received completion")
	return out, nil
}

func toProviderError(err error) *ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error(), Err: err}
	}
	return &ProviderError{Err: err}
}

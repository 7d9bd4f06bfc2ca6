// Package speech turns narration text into audio through the text-to-speech
// endpoint, splitting long text at sentence boundaries and concatenating the
// resulting clips.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"echoframe-go/internal/httpclient"
)

const (
	DefaultModel  = "playai-tts"
	DefaultVoice  = "Fritz-PlayAI"
	DefaultFormat = "wav"
)

// ErrTooLong is returned when a single request exceeds the provider ceiling.
var ErrTooLong = errors.New("speech input exceeds provider character ceiling")

type Request struct {
	Model  string `json:"model"`
	Voice  string `json:"voice"`
	Input  string `json:"input"`
	Format string `json:"response_format"`
}

// Client calls the OpenAI-compatible /audio/speech endpoint.
type Client struct {
	HTTP     *httpclient.Client
	BaseURL  string
	APIKey   string
	MaxChars int

	Model  string
	Voice  string
	Format string
	Log    *logrus.Entry
}

func NewClient(hc *httpclient.Client, baseURL, apiKey string, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		HTTP:     hc,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		MaxChars: DefaultMaxChars,
		Model:    DefaultModel,
		Voice:    DefaultVoice,
		Format:   DefaultFormat,
		Log:      log.WithField("component", "speech"),
	}
}

// Synthesize returns the raw audio for one request. Empty fields take the
// client defaults.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.Model == "" {
		req.Model = c.Model
	}
	if req.Voice == "" {
		req.Voice = c.Voice
	}
	if req.Format == "" {
		req.Format = c.Format
	}
	if c.MaxChars > 0 && len(req.Input) > c.MaxChars {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLong, len(req.Input), c.MaxChars)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	body, header, err := c.HTTP.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/audio/speech", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Authorization", "Bearer "+c.APIKey)
		return r, nil
	})
	if err != nil {
		c.Log.WithError(err).WithFields(logrus.Fields{"voice": req.Voice, "chars": len(req.Input)}).Error("speech request failed")
		return nil, err
	}
	c.Log.WithFields(logrus.Fields{
		"chars":        len(req.Input),
		"bytes":        len(body),
		"content_type": header.Get("Content-Type"),
	}).Info("speech synthesized")
	return body, nil
}

// ContentType maps a response format to its MIME type.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "ogg", "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}

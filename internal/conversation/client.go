// Package conversation is a client for the video-conversation platform that
// hosts the interactive replica sessions.
package conversation

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"echoframe-go/internal/httpclient"
)

// Properties is the session behaviour block sent on create.
type Properties struct {
	MaxCallDuration          int    `json:"max_call_duration"`
	ParticipantLeftTimeout   int    `json:"participant_left_timeout"`
	ParticipantAbsentTimeout int    `json:"participant_absent_timeout"`
	EnableRecording          bool   `json:"enable_recording"`
	EnableClosedCaptions     bool   `json:"enable_closed_captions"`
	ApplyGreenscreen         bool   `json:"apply_greenscreen"`
	Language                 string `json:"language"`
	RecordingS3BucketName    string `json:"recording_s3_bucket_name"`
	RecordingS3BucketRegion  string `json:"recording_s3_bucket_region"`
	AWSAssumeRoleARN         string `json:"aws_assume_role_arn"`
}

func DefaultProperties() Properties {
	return Properties{
		MaxCallDuration:          3600,
		ParticipantLeftTimeout:   60,
		ParticipantAbsentTimeout: 300,
		EnableClosedCaptions:     true,
		ApplyGreenscreen:         true,
		Language:                 "english",
	}
}

// CreateRequest carries the caller-controlled fields. Zero values fall back to
// the client defaults.
type CreateRequest struct {
	Name        string      `json:"conversation_name,omitempty"`
	Context     string      `json:"conversational_context,omitempty"`
	Greeting    string      `json:"custom_greeting,omitempty"`
	CallbackURL string      `json:"callback_url,omitempty"`
	Properties  *Properties `json:"properties,omitempty"`
}

type createPayload struct {
	ReplicaID   string     `json:"replica_id"`
	PersonaID   string     `json:"persona_id"`
	Name        string     `json:"conversation_name"`
	Context     string     `json:"conversational_context"`
	Greeting    string     `json:"custom_greeting"`
	CallbackURL string     `json:"callback_url,omitempty"`
	Properties  Properties `json:"properties"`
}

type Conversation struct {
	ID        string `json:"conversation_id"`
	Name      string `json:"conversation_name,omitempty"`
	URL       string `json:"conversation_url,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

var ErrMissingID = errors.New("conversation id is required")

type Client struct {
	HTTP      *httpclient.Client
	BaseURL   string
	APIKey    string
	PersonaID string
	ReplicaID string

	Greeting string
	Context  string
	Log      *logrus.Entry
}

func NewClient(hc *httpclient.Client, baseURL, apiKey, personaID, replicaID string, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		HTTP:      hc,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		PersonaID: personaID,
		ReplicaID: replicaID,
		Greeting:  "Hello! Welcome to our conversation.",
		Context:   "This is a sample context for the conversation.",
		Log:       log.WithField("component", "conversation"),
	}
}

// Create starts a session for the configured replica and persona.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Conversation, error) {
	p := createPayload{
		ReplicaID:   c.ReplicaID,
		PersonaID:   c.PersonaID,
		Name:        req.Name,
		Context:     req.Context,
		Greeting:    req.Greeting,
		CallbackURL: req.CallbackURL,
		Properties:  DefaultProperties(),
	}
	if p.Name == "" {
		p.Name = "Conversation " + uuid.NewString()[:8]
	}
	if p.Context == "" {
		p.Context = c.Context
	}
	if p.Greeting == "" {
		p.Greeting = c.Greeting
	}
	if req.Properties != nil {
		p.Properties = *req.Properties
	}

	var conv Conversation
	if err := c.HTTP.SendJSON(ctx, http.MethodPost, c.BaseURL, c.headers(), p, &conv); err != nil {
		c.Log.WithError(err).WithField("name", p.Name).Error("create conversation failed")
		return nil, err
	}
	c.Log.WithFields(logrus.Fields{"conversation_id": conv.ID, "name": p.Name}).Info("conversation created")
	return &conv, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Conversation, error) {
	u, err := c.url(id)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := c.HTTP.GetJSON(ctx, u, c.headers(), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// End stops a running session; the record stays retrievable.
func (c *Client) End(ctx context.Context, id string) error {
	u, err := c.url(id)
	if err != nil {
		return err
	}
	if err := c.HTTP.SendJSON(ctx, http.MethodPost, u+"/end", c.headers(), nil, nil); err != nil {
		return err
	}
	c.Log.WithField("conversation_id", id).Info("conversation ended")
	return nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	u, err := c.url(id)
	if err != nil {
		return err
	}
	if err := c.HTTP.SendJSON(ctx, http.MethodDelete, u, c.headers(), nil, nil); err != nil {
		return err
	}
	c.Log.WithField("conversation_id", id).Info("conversation deleted")
	return nil
}

func (c *Client) url(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingID
	}
	return c.BaseURL + "/" + url.PathEscape(id), nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"x-api-key": c.APIKey}
}

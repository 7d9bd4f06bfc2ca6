// Package app wires every component from one Config. The binaries under cmd/
// build an App and use the pieces they need.
package app

import (
	"context"
	"fmt"

	"echoframe-go/internal/api"
	"echoframe-go/internal/assistant"
	"echoframe-go/internal/config"
	"echoframe-go/internal/conversation"
	"echoframe-go/internal/httpclient"
	"echoframe-go/internal/llm"
	"echoframe-go/internal/logger"
	"echoframe-go/internal/podcast"
	"echoframe-go/internal/processor"
	"echoframe-go/internal/ratelimit"
	"echoframe-go/internal/speech"
	"echoframe-go/internal/store"
	"echoframe-go/internal/transcript"
	"echoframe-go/internal/visual"
)

type App struct {
	Config *config.Config
	Log    *logger.Logger

	LLM       *llm.Client
	Output    *store.Store
	Processor *processor.Processor
	Podcast   *podcast.Writer
	Speech    *speech.LongForm
	Assistant *assistant.Assistant
	// Conversations is nil when the platform settings are missing.
	Conversations *conversation.Client
}

// Build constructs the components. Only the LLM settings are mandatory.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}

	var mirror store.Mirror
	if cfg.Storage.S3Bucket != "" {
		m, err := store.NewS3Mirror(ctx, store.S3Config{
			Bucket:   cfg.Storage.S3Bucket,
			Prefix:   cfg.Storage.S3Prefix,
			Region:   cfg.Storage.AWSRegion,
			Endpoint: cfg.Storage.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 mirror: %w", err)
		}
		mirror = m
		log.WithField("bucket", cfg.Storage.S3Bucket).Info("mirroring artifacts to s3")
	}

	completer := llm.New(llm.Options{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, log.Entry)

	fetchHTTP := httpclient.New(cfg.HTTP.Timeout, cfg.HTTP.Retries, log.Component("http"))
	// provider POSTs are never replayed
	postHTTP := httpclient.New(cfg.LLM.Timeout, 0, log.Component("http"))

	window := ratelimit.New(cfg.Visual.TokensPerMinute, ratelimit.WithLogger(log.Component("ratelimit")))
	gen := visual.New(completer, window, log.Entry)
	gen.Params = visual.PlannerParams{
		ContextWindow:       cfg.Visual.ContextWindow,
		MaxOutputTokens:     cfg.Visual.MaxOutputTokens,
		PromptOverhead:      cfg.Visual.PromptOverhead,
		TokensPerSegment:    cfg.Visual.TokensPerSegment,
		MaxSegmentsPerChunk: cfg.Visual.MaxSegmentsPerChunk,
	}
	gen.Tolerance = cfg.Visual.MismatchTolerance
	gen.ChunkSize = cfg.Visual.ChunkSize
	gen.Model = cfg.LLM.Model

	output := store.New(cfg.Storage.OutputDir, mirror, log.Entry)
	proc := processor.New(transcript.NewSource(fetchHTTP, log.Entry), gen, output, log.Entry)
	proc.CleanOutput = cfg.Storage.CleanOutput

	tts := speech.NewClient(postHTTP, cfg.LLM.BaseURL, cfg.LLM.APIKey, log.Entry)
	tts.Model = cfg.Speech.Model
	tts.Voice = cfg.Speech.Voice
	tts.Format = cfg.Speech.Format
	tts.MaxChars = cfg.Speech.MaxChars

	a := &App{
		Config:    cfg,
		Log:       log,
		LLM:       completer,
		Output:    output,
		Processor: proc,
		Podcast:   podcast.NewWriter(completer, cfg.LLM.PodcastModel, store.New(cfg.Storage.PodcastDir, mirror, log.Entry), log.Entry),
		Speech: &speech.LongForm{
			TTS:      tts,
			Joiner:   speech.JoinerFor(cfg.Speech.Format, cfg.Speech.FFmpeg),
			MaxChars: cfg.Speech.MaxChars,
			Voice:    cfg.Speech.Voice,
			Format:   cfg.Speech.Format,
			Log:      log.Component("speech"),
		},
		Assistant: assistant.New(completer, cfg.LLM.Model, log.Entry),
	}

	if err := cfg.RequireConversation(); err != nil {
		log.WithError(err).Info("conversation platform disabled")
	} else {
		a.Conversations = conversation.NewClient(postHTTP, cfg.Conversation.URL, cfg.Conversation.APIKey,
			cfg.Conversation.PersonaID, cfg.Conversation.ReplicaID, log.Entry)
	}
	return a, nil
}

// APIServer returns the HTTP handlers' dependency set.
func (a *App) APIServer() *api.Server {
	s := &api.Server{
		Videos:    a.Processor,
		Assistant: a.Assistant,
		Speech:    a.Speech,
		Opts: api.Options{
			CORSOrigins:       a.Config.Server.CORSOrigins,
			RequestsPerSecond: a.Config.Server.RequestsPerSecond,
			Burst:             a.Config.Server.Burst,
			SpeechFormat:      a.Config.Speech.Format,
		},
		Log: a.Log,
	}
	if a.Conversations != nil {
		s.Conversations = a.Conversations
	}
	return s
}

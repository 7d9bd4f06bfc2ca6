// Package api exposes the pipelines over HTTP with gin.
package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"echoframe-go/internal/assistant"
	"echoframe-go/internal/conversation"
	"echoframe-go/internal/logger"
	"echoframe-go/internal/types"
)

type VideoProcessor interface {
	ProcessVideo(ctx context.Context, url string) (*types.VideoAnalysis, error)
}

type Assistant interface {
	Translate(ctx context.Context, text, language string) (string, error)
	TranslateMany(ctx context.Context, text string, languages []string) ([]assistant.Translation, error)
	Summarize(ctx context.Context, text string) (string, error)
	Ask(ctx context.Context, question string) (string, error)
}

type Speaker interface {
	Speak(ctx context.Context, text, voice, format string) ([]byte, error)
}

type Conversations interface {
	Create(ctx context.Context, req conversation.CreateRequest) (*conversation.Conversation, error)
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
	End(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type Options struct {
	CORSOrigins       []string
	RequestsPerSecond float64
	Burst             int
	// SpeechFormat is the audio format used when a request names none.
	SpeechFormat string
	// MaxUploadBytes caps /api/summarize-file uploads.
	MaxUploadBytes int64
}

// Server holds the handlers' dependencies. A nil dependency turns its routes
// into 503 responses.
type Server struct {
	Videos        VideoProcessor
	Assistant     Assistant
	Speech        Speaker
	Conversations Conversations

	Opts Options
	Log  *logger.Logger
}

// Router builds the gin engine with recovery, request logging, CORS and the
// request throttle installed.
func (s *Server) Router() *gin.Engine {
	if s.Log == nil {
		s.Log = logger.Discard()
	}
	if s.Opts.MaxUploadBytes <= 0 {
		s.Opts.MaxUploadBytes = 10 << 20
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.Log.Middleware(), cors.New(corsConfig(s.Opts.CORSOrigins)))
	if s.Opts.RequestsPerSecond > 0 {
		r.Use(Throttle(s.Opts.RequestsPerSecond, s.Opts.Burst))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "echoframe api is running"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")
	{
		api.POST("/videos/process", s.processVideo)
		api.POST("/translate", s.translate)
		api.POST("/summarize", s.summarize)
		api.POST("/summarize-file", s.summarizeFile)
		api.POST("/ask", s.ask)
		api.POST("/speech", s.speech)

		conv := api.Group("/conversations")
		conv.POST("", s.createConversation)
		conv.GET("/:id", s.getConversation)
		conv.POST("/:id/end", s.endConversation)
		conv.DELETE("/:id", s.deleteConversation)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", logger.RequestIDHeader)
	cfg.ExposeHeaders = []string{logger.RequestIDHeader}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

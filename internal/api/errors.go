package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"echoframe-go/internal/assistant"
	"echoframe-go/internal/conversation"
	"echoframe-go/internal/httpclient"
	"echoframe-go/internal/llm"
	"echoframe-go/internal/logger"
	"echoframe-go/internal/repair"
	"echoframe-go/internal/speech"
	"echoframe-go/internal/transcript"
	"echoframe-go/internal/visual"
)

type errorBody struct {
	Error          string `json:"error"`
	ProviderStatus int    `json:"provider_status,omitempty"`
	ProviderBody   string `json:"provider_body,omitempty"`
}

// classify maps a pipeline error to the response status and body.
func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var (
		verr *repair.ValidationError
		merr *visual.MismatchError
		perr *llm.ProviderError
		serr *httpclient.StatusError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, body
	case errors.Is(err, transcript.ErrInvalidURL),
		errors.Is(err, assistant.ErrEmptyInput),
		errors.Is(err, conversation.ErrMissingID),
		errors.Is(err, speech.ErrTooLong):
		return http.StatusBadRequest, body
	case errors.Is(err, transcript.ErrNoTranscript):
		return http.StatusNotFound, body
	case errors.As(err, &verr), errors.As(err, &merr):
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway, body
	case errors.As(err, &perr):
		body.ProviderStatus, body.ProviderBody = perr.StatusCode, perr.Body
		return http.StatusBadGateway, body
	case errors.As(err, &serr):
		body.ProviderStatus, body.ProviderBody = serr.StatusCode, serr.Body
		if serr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, body
		}
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, body := classify(err)
	entry := logger.FromGin(c, s.Log.Entry).WithError(err).WithField("status", status)
	if status >= 500 {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg})
}

func unavailable(c *gin.Context, what string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody{Error: what + " is not configured"})
}

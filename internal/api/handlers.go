package api

import (
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"echoframe-go/internal/conversation"
	"echoframe-go/internal/logger"
	"echoframe-go/internal/speech"
)

type processRequest struct {
	URL string `json:"url" binding:"required"`
}

func (s *Server) processVideo(c *gin.Context) {
	if s.Videos == nil {
		unavailable(c, "video processing")
		return
	}
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	res, err := s.Videos.ProcessVideo(c.Request.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type translateRequest struct {
	Text      string   `json:"text"`
	Language  string   `json:"language"`
	Languages []string `json:"languages"`
}

func (s *Server) translate(c *gin.Context) {
	if s.Assistant == nil {
		unavailable(c, "assistant")
		return
	}
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	ctx := c.Request.Context()
	switch {
	case len(req.Languages) > 0:
		out, err := s.Assistant.TranslateMany(ctx, req.Text, req.Languages)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"translations": out})
	case req.Language != "":
		out, err := s.Assistant.Translate(ctx, req.Text, req.Language)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"language": req.Language, "translation": out})
	default:
		badRequest(c, "language or languages is required")
	}
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) summarize(c *gin.Context) {
	if s.Assistant == nil {
		unavailable(c, "assistant")
		return
	}
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	out, err := s.Assistant.Summarize(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": out})
}

// summarizeFile accepts a plain-text upload in the multipart field "file".
func (s *Server) summarizeFile(c *gin.Context) {
	if s.Assistant == nil {
		unavailable(c, "assistant")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file uploaded.")
		return
	}
	if fh.Size > s.Opts.MaxUploadBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, errorBody{Error: "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, s.Opts.MaxUploadBytes))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !utf8.Valid(raw) {
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, errorBody{Error: "only plain-text files can be summarized"})
		return
	}

	logger.FromGin(c, s.Log.Entry).WithFields(logrus.Fields{"file": fh.Filename, "bytes": fh.Size}).Info("file uploaded for summary")
	out, err := s.Assistant.Summarize(c.Request.Context(), string(raw))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": out})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) ask(c *gin.Context) {
	if s.Assistant == nil {
		unavailable(c, "assistant")
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	out, err := s.Assistant.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": out})
}

type speechRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

func (s *Server) speech(c *gin.Context) {
	if s.Speech == nil {
		unavailable(c, "speech")
		return
	}
	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(c, "text is required")
		return
	}
	format := req.Format
	if format == "" {
		format = s.Opts.SpeechFormat
	}
	if format == "" {
		format = speech.DefaultFormat
	}
	audio, err := s.Speech.Speak(c.Request.Context(), req.Text, req.Voice, format)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, speech.ContentType(format), audio)
}

func (s *Server) createConversation(c *gin.Context) {
	if s.Conversations == nil {
		unavailable(c, "conversation platform")
		return
	}
	var req conversation.CreateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid JSON body")
			return
		}
	}
	conv, err := s.Conversations.Create(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (s *Server) getConversation(c *gin.Context) {
	if s.Conversations == nil {
		unavailable(c, "conversation platform")
		return
	}
	conv, err := s.Conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) endConversation(c *gin.Context) {
	if s.Conversations == nil {
		unavailable(c, "conversation platform")
		return
	}
	id := c.Param("id")
	if err := s.Conversations.End(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": id, "status": "ended"})
}

func (s *Server) deleteConversation(c *gin.Context) {
	if s.Conversations == nil {
		unavailable(c, "conversation platform")
		return
	}
	if err := s.Conversations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

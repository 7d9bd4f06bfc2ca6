package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoframe-go/internal/config"
	"echoframe-go/internal/logger"
	"echoframe-go/internal/speech"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.LLM.APIKey = "key"
	cfg.Storage.OutputDir = t.TempDir()
	cfg.Storage.PodcastDir = t.TempDir()
	cfg.Visual.ChunkSize = 50
	return cfg
}

func TestBuildRequiresLLMKey(t *testing.T) {
	_, err := Build(context.Background(), config.Default(), logger.Discard())
	assert.ErrorContains(t, err, "GROQ_API_KEY")
}

func TestBuildWiresComponents(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), logger.Discard())
	require.NoError(t, err)

	assert.NotNil(t, a.Processor)
	assert.NotNil(t, a.Podcast)
	assert.NotNil(t, a.Assistant)
	assert.Nil(t, a.Conversations)
	assert.IsType(t, speech.WAVJoiner{}, a.Speech.Joiner)
	assert.True(t, a.Processor.CleanOutput)
}

func TestAPIServerWithoutConversations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := Build(context.Background(), testConfig(t), logger.Discard())
	require.NoError(t, err)

	srv := a.APIServer()
	assert.Nil(t, srv.Conversations)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBuildWithConversationPlatform(t *testing.T) {
	cfg := testConfig(t)
	cfg.Conversation.APIKey = "tavus"
	cfg.Conversation.PersonaID = "p"
	cfg.Conversation.ReplicaID = "r"

	a, err := Build(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, a.Conversations)
	assert.Equal(t, config.DefaultTavusURL, a.Conversations.BaseURL)
	assert.NotNil(t, a.APIServer().Conversations)
}

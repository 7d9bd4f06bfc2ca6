package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoframe-go/internal/logger"
)

type memMirror struct {
	mu   sync.Mutex
	puts map[string]string
	err  error
}

func (m *memMirror) Put(_ context.Context, key string, body []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.puts == nil {
		m.puts = map[string]string{}
	}
	m.puts[key] = string(body)
	return nil
}

func TestWriteJSONIndentsAndMirrors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	m := &memMirror{}
	s := New(dir, m, logger.Discard().Entry)

	p, err := s.WriteJSON(context.Background(), VideoArtifactName("abc"), map[string]int{"total_videos": 1})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "youtube_abc_enhanced.json"), p)

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"total_videos\": 1\n}", string(b))
	assert.Equal(t, string(b), m.puts["youtube_abc_enhanced.json"])
}

func TestMirrorFailureKeepsLocalFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, &memMirror{err: errors.New("denied")}, logger.Discard().Entry)

	p, err := s.WriteText(context.Background(), "full_podcast.txt", "hello")
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestCleanRemovesFilesOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FinalName), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "keep"), 0o755))

	s := New(dir, nil, logger.Discard().Entry)
	require.NoError(t, s.Clean())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep", entries[0].Name())
}

func TestCleanCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	s := New(dir, nil, logger.Discard().Entry)
	require.NoError(t, s.Clean())
	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func TestS3MirrorPutsUnderPrefix(t *testing.T) {
	var gotPath, gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	awsCfg := aws.Config{
		Region: "us-east-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
		}),
	}
	m := newS3Mirror(awsCfg, S3Config{Bucket: "artifacts", Prefix: "runs/1", Endpoint: srv.URL})
	assert.Equal(t, "runs/1/final.json", m.Key(FinalName))

	require.NoError(t, m.Put(context.Background(), FinalName, []byte(`{"total_videos":2}`), "application/json"))
	assert.Equal(t, "/artifacts/runs/1/final.json", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Contains(t, gotBody, `{"total_videos":2}`)
}

func TestNewS3MirrorRequiresBucket(t *testing.T) {
	_, err := NewS3Mirror(context.Background(), S3Config{})
	assert.Error(t, err)
}

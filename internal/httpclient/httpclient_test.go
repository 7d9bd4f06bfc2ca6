package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.Write([]byte(`{"title":"hello"}`))
	}))
	defer srv.Close()

	c := New(time.Second, 0, nil)
	var out struct {
		Title string `json:"title"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, map[string]string{"X-Test": "yes"}, &out))
	assert.Equal(t, "hello", out.Title)
}

func TestNoRetryByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := New(time.Second, 0, nil)
	_, err := c.GetText(context.Background(), srv.URL, nil)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
	assert.Equal(t, "upstream down", serr.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryBudgetOnServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(time.Second, 3, nil)
	c.InitialInterval = time.Millisecond
	body, err := c.GetText(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientErrorsArePermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(time.Second, 3, nil)
	c.InitialInterval = time.Millisecond
	err := c.SendJSON(context.Background(), http.MethodPost, srv.URL, nil, map[string]string{"a": "b"}, nil)
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSendJSONPostsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"id":"c1"}`))
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	c := New(time.Second, 0, nil)
	require.NoError(t, c.SendJSON(context.Background(), http.MethodPost, srv.URL, nil, map[string]int{"n": 1}, &out))
	assert.Equal(t, "c1", out.ID)
}

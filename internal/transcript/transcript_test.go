package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echoframe-go/internal/httpclient"
	"echoframe-go/internal/logger"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://youtu.be/c9RY8RosGPo", want: "c9RY8RosGPo"},
		{url: "https://youtu.be/c9RY8RosGPo?si=abc", want: "c9RY8RosGPo"},
		{url: "https://www.youtube.com/watch?v=IyQzCoiwE5E", want: "IyQzCoiwE5E"},
		{url: "https://www.youtube.com/watch?v=IyQzCoiwE5E&t=42s", want: "IyQzCoiwE5E"},
		{url: "https://www.youtube.com/shorts/Zx9-abc_123?feature=share", want: "Zx9-abc_123"},
		{url: "https://vimeo.com/12345", wantErr: true},
		{url: "https://youtu.be/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatTimestamp(0))
	assert.Equal(t, "00:00:05", FormatTimestamp(5.99))
	assert.Equal(t, "00:01:01", FormatTimestamp(61))
	assert.Equal(t, "01:00:00", FormatTimestamp(3600))
	assert.Equal(t, "02:03:04", FormatTimestamp(2*3600+3*60+4.5))
}

const watchPage = `<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
{"baseUrl":"%[1]s/timedtext?lang=de","languageCode":"de","kind":""},
{"baseUrl":"%[1]s/timedtext?lang=en&kind=asr","languageCode":"en","kind":"asr"},
{"baseUrl":"%[1]s/timedtext?lang=en","languageCode":"en","kind":""}
]}},"videoDetails":{"title":"a {tricky} \"title\""}};var other = {};</script></html>`

const legacyXML = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.1">Hello &amp;amp; welcome</text>
<text start="2.6" dur="3">it&amp;#39;s
a test</text>
<text start="6" dur="1"></text>
<text start="3661.2" dur="1.9">late line</text>
</transcript>`

func newTestSource(t *testing.T, mux *http.ServeMux) *Source {
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	s := NewSource(httpclient.New(time.Second, 0, nil), logger.Discard().Entry)
	s.WatchBase = srv.URL + "/watch"
	s.OEmbedBase = srv.URL + "/oembed"
	return s
}

func TestFetchPicksManualTrackAndParses(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	var gotLang, gotKind string
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vid1", r.URL.Query().Get("v"))
		fmt.Fprintf(w, watchPage, base)
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		gotLang, gotKind = r.URL.Query().Get("lang"), r.URL.Query().Get("kind")
		w.Write([]byte(legacyXML))
	})
	s := newTestSource(t, mux)
	base = s.WatchBase[:len(s.WatchBase)-len("/watch")]

	segs, err := s.Fetch(context.Background(), "vid1")
	require.NoError(t, err)
	assert.Equal(t, "en", gotLang)
	assert.Empty(t, gotKind)

	require.Len(t, segs, 3)
	assert.Equal(t, "00:00:00", segs[0].StartTime)
	assert.Equal(t, "00:00:02", segs[0].EndTime)
	assert.Equal(t, "Hello & welcome", segs[0].Text)
	assert.Equal(t, "it's a test", segs[1].Text)
	assert.Equal(t, "01:01:01", segs[2].StartTime)
	assert.Equal(t, "01:01:03", segs[2].EndTime)
}

func TestFetchSrv3Layout(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) { fmt.Fprintf(w, watchPage, base) })
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<timedtext format="3"><body><p t="1500" d="2000">hi <s>there</s></p></body></timedtext>`))
	})
	s := newTestSource(t, mux)
	base = s.WatchBase[:len(s.WatchBase)-len("/watch")]

	segs, err := s.Fetch(context.Background(), "vid1")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "00:00:01", segs[0].StartTime)
	assert.Equal(t, "00:00:03", segs[0].EndTime)
	assert.Equal(t, "hi there", segs[0].Text)
}

func TestFetchWithoutCaptions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}};</script>`))
	})
	s := newTestSource(t, mux)

	_, err := s.Fetch(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNoTranscript)
	assert.Contains(t, err.Error(), "Video unavailable")
}

func TestFetchWithoutPlayerResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html></html>")) })
	s := newTestSource(t, mux)

	_, err := s.Fetch(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoTranscript)
}

func TestFetchProviderFailureIsNotAbsence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) })
	s := newTestSource(t, mux)

	_, err := s.Fetch(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoTranscript))
	var serr *httpclient.StatusError
	assert.True(t, errors.As(err, &serr))
}

func TestTitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.youtube.com/watch?v=vid1", r.URL.Query().Get("url"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		if r.URL.Query().Get("url") == "https://www.youtube.com/watch?v=vid1" {
			w.Write([]byte(`{"title":"My Video","author_name":"me"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	s := newTestSource(t, mux)

	assert.Equal(t, "My Video", s.Title(context.Background(), "vid1"))
}

func TestTitleFailureIsEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) })
	s := newTestSource(t, mux)

	assert.Empty(t, s.Title(context.Background(), "private"))
}

func TestBalancedObjectIgnoresBracesInStrings(t *testing.T) {
	got := balancedObject([]byte(`{"a":"}{\"}","b":{"c":1}};tail`))
	assert.Equal(t, `{"a":"}{\"}","b":{"c":1}}`, string(got))
	assert.Nil(t, balancedObject([]byte(`{"a":1`)))
}

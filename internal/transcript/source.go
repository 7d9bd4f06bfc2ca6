// Package transcript fetches caption tracks and titles for YouTube videos.
package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"echoframe-go/internal/httpclient"
	"echoframe-go/internal/types"
)

// ErrNoTranscript means the video has no usable captions. Callers treat it as
// an absent result, not a provider failure.
var ErrNoTranscript = errors.New("no transcript available")

const (
	DefaultWatchBase  = "https://www.youtube.com/watch"
	DefaultOEmbedBase = "https://www.youtube.com/oembed"

	playerResponseMarker = "ytInitialPlayerResponse = "
	userAgent            = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

type Source struct {
	HTTP       *httpclient.Client
	WatchBase  string
	OEmbedBase string
	// Languages in order of preference for the caption track.
	Languages []string
	Log       *logrus.Entry
}

func NewSource(hc *httpclient.Client, log *logrus.Entry) *Source {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Source{
		HTTP:       hc,
		WatchBase:  DefaultWatchBase,
		OEmbedBase: DefaultOEmbedBase,
		Languages:  []string{"en"},
		Log:        log.WithField("component", "transcript"),
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// Fetch returns the ordered caption segments of a video. Videos without
// captions, and ids YouTube does not know, yield ErrNoTranscript.
func (s *Source) Fetch(ctx context.Context, videoID string) ([]types.TranscriptSegment, error) {
	log := s.Log.WithField("video_id", videoID)

	page, err := s.HTTP.GetText(ctx, s.WatchBase+"?v="+url.QueryEscape(videoID), map[string]string{
		"User-Agent":      userAgent,
		"Accept-Language": "en-US,en;q=0.9",
	})
	if err != nil {
		var serr *httpclient.StatusError
		if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: video %s not found", ErrNoTranscript, videoID)
		}
		return nil, fmt.Errorf("watch page: %w", err)
	}

	tracks, err := captionTracks(page)
	if err != nil {
		log.WithError(err).Warn("no caption tracks")
		return nil, err
	}
	track := pickBestTrack(tracks, s.Languages)
	log.WithFields(logrus.Fields{"lang": track.LanguageCode, "kind": track.Kind}).Debug("caption track selected")

	body, err := s.HTTP.GetText(ctx, track.BaseURL, map[string]string{"User-Agent": userAgent})
	if err != nil {
		return nil, fmt.Errorf("timedtext: %w", err)
	}
	segs, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: empty caption track", ErrNoTranscript)
	}
	log.WithField("segments", len(segs)).Info("transcript extracted")
	return segs, nil
}

func captionTracks(page []byte) ([]captionTrack, error) {
	idx := bytes.Index(page, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, fmt.Errorf("%w: player response missing from watch page", ErrNoTranscript)
	}
	raw := balancedObject(page[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, fmt.Errorf("%w: unterminated player response", ErrNoTranscript)
	}
	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	if pr.Captions == nil || len(pr.Captions.Renderer.CaptionTracks) == 0 {
		reason := "no captions"
		if pr.PlayabilityStatus != nil && pr.PlayabilityStatus.Reason != "" {
			reason = pr.PlayabilityStatus.Reason
		}
		return nil, fmt.Errorf("%w: %s", ErrNoTranscript, reason)
	}
	return pr.Captions.Renderer.CaptionTracks, nil
}

// balancedObject returns the JSON object at the start of b, honouring strings
// and escapes, or nil when it never closes.
func balancedObject(b []byte) []byte {
	start := bytes.IndexByte(b, '{')
	if start < 0 {
		return nil
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(b); i++ {
		c := b[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[start : i+1]
			}
		}
	}
	return nil
}

// pickBestTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then the first.
func pickBestTrack(tracks []captionTrack, langs []string) captionTrack {
	for _, lang := range langs {
		for _, t := range tracks {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t
			}
		}
	}
	for _, lang := range langs {
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return t
			}
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t
		}
	}
	return tracks[0]
}

// timedText covers both the legacy <transcript><text start dur> layout and the
// srv3 <timedtext><body><p t d> layout (milliseconds).
type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Text  string  `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T     int64    `xml:"t,attr"`
		D     int64    `xml:"d,attr"`
		Text  string   `xml:",chardata"`
		Spans []string `xml:"s"`
	} `xml:"body>p"`
}

func parseTimedText(body []byte) ([]types.TranscriptSegment, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext: %w", err)
	}
	out := make([]types.TranscriptSegment, 0, len(tt.Texts)+len(tt.Paragraphs))
	add := func(start, dur float64, text string) {
		text = cleanCaption(text)
		if text == "" {
			return
		}
		out = append(out, types.TranscriptSegment{
			StartTime: FormatTimestamp(start),
			EndTime:   FormatTimestamp(start + dur),
			Text:      text,
		})
	}
	for _, t := range tt.Texts {
		add(t.Start, t.Dur, t.Text)
	}
	for _, p := range tt.Paragraphs {
		add(float64(p.T)/1000, float64(p.D)/1000, p.Text+strings.Join(p.Spans, ""))
	}
	return out, nil
}

// cleanCaption undoes the double entity escaping YouTube applies and folds
// line breaks.
func cleanCaption(s string) string {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// Title looks the video up through oEmbed. Any failure returns "".
func (s *Source) Title(ctx context.Context, videoID string) string {
	u := s.OEmbedBase + "?url=" + url.QueryEscape(WatchURL(videoID)) + "&format=json"
	var out struct {
		Title string `json:"title"`
	}
	if err := s.HTTP.GetJSON(ctx, u, nil, &out); err != nil {
		s.Log.WithError(err).WithField("video_id", videoID).Warn("title lookup failed")
		return ""
	}
	return out.Title
}

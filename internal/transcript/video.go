package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURL is returned for links that name no recognisable video.
var ErrInvalidURL = errors.New("invalid YouTube URL format")

// ExtractVideoID understands youtu.be/<id>, watch?v=<id> and /shorts/<id>.
func ExtractVideoID(videoURL string) (string, error) {
	var id string
	switch {
	case strings.Contains(videoURL, "youtu.be/"):
		id = after(videoURL, "youtu.be/")
		id = cut(id, "?")
	case strings.Contains(videoURL, "watch?v="):
		id = after(videoURL, "watch?v=")
		id = cut(id, "&")
	case strings.Contains(videoURL, "/shorts/"):
		id = after(videoURL, "/shorts/")
		id = cut(cut(id, "?"), "&")
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, videoURL)
	}
	id = cut(cut(id, "#"), "/")
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, videoURL)
	}
	return id, nil
}

func after(s, sep string) string {
	return s[strings.LastIndex(s, sep)+len(sep):]
}

func cut(s, sep string) string {
	before, _, _ := strings.Cut(s, sep)
	return before
}

// WatchURL is the canonical link for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// FormatTimestamp renders seconds as HH:MM:SS, dropping the fraction.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

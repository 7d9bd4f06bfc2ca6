package types

// TranscriptSegment is one caption line as fetched from the transcript source.
// Timestamps are HH:MM:SS strings.
type TranscriptSegment struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Text      string `json:"text"`
}

type VisualDescriptionSegment struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description"`
}

// VideoAnalysis is the persisted record for one video.
type VideoAnalysis struct {
	VideoID           string                     `json:"video_id"`
	Title             string                     `json:"title"`
	URL               string                     `json:"url"`
	Transcription     []TranscriptSegment        `json:"transcription"`
	VisualDescription []VisualDescriptionSegment `json:"visual_description"`
	Warning           string                     `json:"warning,omitempty"`
}

// BatchResult is written as final.json after a batch run.
type BatchResult struct {
	TotalVideos int             `json:"total_videos"`
	Videos      []VideoAnalysis `json:"videos"`
	Summary     BatchSummary    `json:"summary"`
	Failed      []FailedVideo   `json:"failed,omitempty"`
}

type FailedVideo struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type BatchSummary struct {
	TotalSegments     int      `json:"total_segments"`
	TotalDescriptions int      `json:"total_descriptions"`
	MismatchedVideos  []string `json:"mismatched_videos,omitempty"`
	AvgSegments       float64  `json:"avg_segments_per_video"`
	FailureRate       float64  `json:"failure_rate"`
}

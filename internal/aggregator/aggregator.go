package aggregator

import "echoframe-go/internal/types"

// Summarize computes the batch statistics stored alongside final.json.
// failed is the number of videos that produced no analysis.
func Summarize(videos []types.VideoAnalysis, failed int) types.BatchSummary {
	var s types.BatchSummary
	for _, v := range videos {
		s.TotalSegments += len(v.Transcription)
		s.TotalDescriptions += len(v.VisualDescription)
		if v.Warning != "" || len(v.Transcription) != len(v.VisualDescription) {
			s.MismatchedVideos = append(s.MismatchedVideos, v.VideoID)
		}
	}
	if len(videos) > 0 {
		s.AvgSegments = float64(s.TotalSegments) / float64(len(videos))
	}
	if total := len(videos) + failed; total > 0 {
		s.FailureRate = float64(failed) / float64(total)
	}
	return s
}

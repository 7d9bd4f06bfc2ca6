package dataset

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"echoframe-go/internal/types"
)

const (
	videosSheet  = "videos"
	summarySheet = "summary"
	failedSheet  = "failed"
)

var videoHeader = []any{"video_id", "title", "url", "segments", "descriptions", "warning"}

// WriteReport saves a spreadsheet view of a batch: one row per video, the
// batch statistics, and the videos that failed.
func WriteReport(path string, batch *types.BatchResult, log *logrus.Entry) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{"component": "dataset.report", "path": path})

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), videosSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]any{videoHeader}
	for _, v := range batch.Videos {
		rows = append(rows, []any{v.VideoID, v.Title, v.URL, len(v.Transcription), len(v.VisualDescription), v.Warning})
	}
	if err := writeRows(f, videosSheet, rows); err != nil {
		return err
	}

	s := batch.Summary
	if err := writeSheet(f, summarySheet, [][]any{
		{"metric", "value"},
		{"total_videos", batch.TotalVideos},
		{"failed_videos", len(batch.Failed)},
		{"total_segments", s.TotalSegments},
		{"total_descriptions", s.TotalDescriptions},
		{"avg_segments_per_video", s.AvgSegments},
		{"failure_rate", s.FailureRate},
		{"mismatched_videos", strings.Join(s.MismatchedVideos, ", ")},
	}); err != nil {
		return err
	}

	if len(batch.Failed) > 0 {
		failed := [][]any{{"url", "reason"}}
		for _, fv := range batch.Failed {
			failed = append(failed, []any{fv.URL, fv.Reason})
		}
		if err := writeSheet(f, failedSheet, failed); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		log.WithError(err).Error("save failed")
		return fmt.Errorf("save %s: %w", path, err)
	}
	log.WithField("videos", len(batch.Videos)).Info("report written")
	return nil
}

func writeSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("new sheet %s: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

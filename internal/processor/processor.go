package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"echoframe-go/internal/aggregator"
	"echoframe-go/internal/store"
	"echoframe-go/internal/transcript"
	"echoframe-go/internal/types"
	"echoframe-go/internal/visual"
)

// UntitledVideo replaces a title the oEmbed lookup could not provide.
const UntitledVideo = "Untitled Video"

// TranscriptSource supplies a video's timed captions and its title. Title
// returns "" when the title cannot be looked up.
type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) ([]types.TranscriptSegment, error)
	Title(ctx context.Context, videoID string) string
}

type Describer interface {
	Generate(ctx context.Context, transcript []types.TranscriptSegment) (*visual.Result, error)
}

// Processor runs the per-video pipeline: transcript, visual descriptions, then
// the artifacts written to Store.
type Processor struct {
	Source    TranscriptSource
	Describer Describer
	Store     *store.Store
	// CleanOutput empties the artifact directory before a batch.
	CleanOutput bool
	Log         *logrus.Entry
}

func New(src TranscriptSource, d Describer, st *store.Store, log *logrus.Entry) *Processor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Processor{Source: src, Describer: d, Store: st, Log: log.WithField("component", "processor")}
}

// ProcessVideo runs one video end to end and persists its analysis. Errors
// wrap transcript.ErrInvalidURL, transcript.ErrNoTranscript, the visual
// generator's errors, or a storage failure.
func (p *Processor) ProcessVideo(ctx context.Context, url string) (*types.VideoAnalysis, error) {
	start := time.Now()
	log := p.Log.WithField("url", url)

	id, err := transcript.ExtractVideoID(url)
	if err != nil {
		log.WithError(err).Warn("rejecting url")
		return nil, err
	}
	log = log.WithField("video_id", id)

	title := p.Source.Title(ctx, id)
	if title == "" {
		title = UntitledVideo
	}

	segs, err := p.Source.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transcript for %s: %w", id, err)
	}

	res, err := p.Describer.Generate(ctx, segs)
	if err != nil {
		return nil, fmt.Errorf("visual description for %s: %w", id, err)
	}

	analysis := &types.VideoAnalysis{
		VideoID:           id,
		Title:             title,
		URL:               url,
		Transcription:     segs,
		VisualDescription: res.Descriptions,
		Warning:           res.Warning,
	}
	if p.Store != nil {
		if _, err := p.Store.WriteJSON(ctx, store.VideoArtifactName(id), analysis); err != nil {
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{
		"segments":    len(segs),
		"chunks":      res.Chunks,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("video processed")
	return analysis, nil
}

// ProcessBatch processes urls one at a time. A failed video is logged and
// recorded in Failed; the rest carry on. final.json is written only when at
// least one video succeeded. A cancelled context stops the batch.
func (p *Processor) ProcessBatch(ctx context.Context, urls []string) (*types.BatchResult, error) {
	if p.CleanOutput && p.Store != nil {
		if err := p.Store.Clean(); err != nil {
			p.Log.WithError(err).Warn("could not fully clean output directory")
		}
	}

	out := &types.BatchResult{Videos: []types.VideoAnalysis{}}
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		p.Log.WithFields(logrus.Fields{"url": url, "index": i + 1, "of": len(urls)}).Info("processing video")

		a, err := p.ProcessVideo(ctx, url)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			p.Log.WithError(err).WithField("url", url).Error("failed to process video")
			out.Failed = append(out.Failed, types.FailedVideo{URL: url, Reason: err.Error()})
			continue
		}
		out.Videos = append(out.Videos, *a)
	}

	out.TotalVideos = len(out.Videos)
	out.Summary = aggregator.Summarize(out.Videos, len(out.Failed))
	if out.TotalVideos > 0 && p.Store != nil {
		if _, err := p.Store.WriteJSON(ctx, store.FinalName, out); err != nil {
			return out, err
		}
	}
	return out, nil
}

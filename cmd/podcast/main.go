// Command podcast narrates the analyses in the data folder, merges the
// episodes and, unless -text-only is set, voices the merged script.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"echoframe-go/internal/app"
	"echoframe-go/internal/config"
	"echoframe-go/internal/logger"
	"echoframe-go/internal/podcast"
	"echoframe-go/internal/speech"
)

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "folder of analysis JSON files (defaults to DATA_DIR)")
	textOnly := flag.Bool("text-only", false, "write the scripts but skip speech synthesis")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.New("", "info").WithError(err).Fatal("failed to load config")
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)
	*dir = cfg.Storage.PodcastInput(*dir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build components")
	}

	res, err := a.Podcast.Run(ctx, *dir)
	if errors.Is(err, podcast.ErrNoEpisodes) {
		log.WithField("dir", *dir).Fatal("no episodes could be generated")
	}
	if err != nil {
		log.WithError(err).Fatal("podcast generation failed")
	}
	log.WithField("merged", res.MergedPath).WithField("episodes", len(res.Episodes)).Info("podcast script ready")
	if *textOnly {
		return
	}

	audio, err := a.Speech.SynthesizeLong(ctx, res.Merged)
	if err != nil {
		log.WithError(err).Fatal("speech synthesis failed")
	}
	name := "full_podcast." + cfg.Speech.Format
	path, err := a.Podcast.Out.WriteBytes(ctx, name, audio, speech.ContentType(cfg.Speech.Format))
	if err != nil {
		log.WithError(err).Fatal("failed to save audio")
	}
	log.WithField("path", path).WithField("bytes", len(audio)).Info("podcast audio saved")
}

// Command metadata runs the video pipeline over a list of URLs and writes
// final.json plus an optional spreadsheet report.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"echoframe-go/internal/app"
	"echoframe-go/internal/config"
	"echoframe-go/internal/dataset"
	"echoframe-go/internal/logger"
)

func main() {
	_ = godotenv.Load()

	input := flag.String("input", "", "spreadsheet (.xlsx) or text file with one video URL per line")
	report := flag.String("report", "", "write an .xlsx report of the batch to this path")
	clean := flag.Bool("clean", true, "empty the output directory before processing")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.New("", "info").WithError(err).Fatal("failed to load config")
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	urls := flag.Args()
	if *input != "" {
		loaded, err := dataset.LoadVideoURLs(*input)
		if err != nil {
			log.WithError(err).WithField("input", *input).Fatal("failed to load video list")
		}
		urls = append(urls, loaded...)
	}
	if len(urls) == 0 {
		log.Fatal("no video URLs given: pass them as arguments or with -input")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build components")
	}
	a.Processor.CleanOutput = *clean

	batch, err := a.Processor.ProcessBatch(ctx, urls)
	if err != nil {
		log.WithError(err).Error("batch stopped early")
	}
	if batch == nil {
		os.Exit(1)
	}
	log.WithField("succeeded", batch.TotalVideos).
		WithField("failed", len(batch.Failed)).
		WithField("output_dir", cfg.Storage.OutputDir).
		Info("batch finished")

	if *report != "" {
		if err := dataset.WriteReport(*report, batch, log.Component("report")); err != nil {
			log.WithError(err).Fatal("failed to write report")
		}
	}
	if batch.TotalVideos == 0 {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"echoframe-go/internal/app"
	"echoframe-go/internal/config"
	"echoframe-go/internal/logger"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.New("", "info").WithError(err).Fatal("failed to load config")
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)
	log.WithField("service", "echoframe-api").Info("starting service")

	if cfg.Environment != "local" && cfg.Environment != "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build components")
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     a.APIServer().Router(),
		ReadTimeout: 15 * time.Second,
		// video processing and long speech run inside the request
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server exited")
}

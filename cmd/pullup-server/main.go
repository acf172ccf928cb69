// pullup-server runs the web service: video upload, live progress over
// WebSocket, and download of the annotated output.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/analyzer"
	"github.com/filiksyos/AI-pull-up-counter/pkg/bootstrap"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/progress"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/sentry"
	"github.com/filiksyos/AI-pull-up-counter/pkg/overlay"
	"github.com/filiksyos/AI-pull-up-counter/pkg/processor"
	"github.com/filiksyos/AI-pull-up-counter/pkg/video"
	"github.com/filiksyos/AI-pull-up-counter/services/web"
)

func main() {
	logger := bootstrap.NewLogger(shared.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.NewService(ctx, logger)
	if err != nil {
		logger.Error("Service init failed", "error", err)
		os.Exit(1)
	}
	cfg := svc.Config

	if err := sentry.Init(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: os.Getenv("ENVIRONMENT"),
		ServerName:  shared.ServiceName,
	}, logger); err != nil {
		logger.Error("Sentry init failed", "error", err)
	}
	defer sentry.Flush(2 * time.Second)

	hub := progress.NewHub(logger)
	mgr := progress.NewManager(hub, logger)

	proc := &processor.Processor{
		Frames:   video.Extractor{},
		Pose:     svc.Pose,
		Renderer: &overlay.MP4Renderer{},
		AI:       analyzer.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.FramesPerRequest, logger),
		Store:    svc.Store,
		Progress: mgr,
		Config:   cfg,
		Logger:   logger,
	}

	srv := web.NewServer(cfg, logger, hub, mgr, proc.Process)
	go srv.CleanupLoop(ctx)

	if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

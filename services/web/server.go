// Package web serves the upload UI's backend: video upload, progress
// over WebSocket and polling, and artifact download. One video is
// processed at a time.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/filiksyos/AI-pull-up-counter/pkg/bootstrap"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/progress"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/sentry"
	"github.com/filiksyos/AI-pull-up-counter/pkg/processor"
)

// ProcessFunc runs the analysis pipeline for one uploaded video. It is
// a function field so tests can stub the pipeline.
type ProcessFunc func(ctx context.Context, inputPath, outputName string) (*processor.Output, error)

type Server struct {
	cfg      *bootstrap.Config
	logger   *slog.Logger
	hub      *progress.Hub
	progress *progress.Manager
	process  ProcessFunc

	mu      sync.Mutex
	busy    bool
	results map[string]*processor.Output
}

func NewServer(cfg *bootstrap.Config, logger *slog.Logger, hub *progress.Hub, mgr *progress.Manager, process ProcessFunc) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		hub:      hub,
		progress: mgr,
		process:  process,
		results:  make(map[string]*processor.Output),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/upload", s.handleUpload)
	r.Get("/ws", s.hub.ServeHTTP)
	r.Get("/progress", s.handleProgress)
	r.Get("/download/{filename}", s.handleDownload)
	r.Head("/download/{filename}", s.handleDownload)
	r.Get("/results/{id}", s.handleResults)
	r.Get("/health", s.handleHealth)

	return r
}

// tryAcquire marks the server busy. Only one video processes at a time;
// the progress channel is global.
func (s *Server) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Server) storeResult(out *processor.Output) {
	s.mu.Lock()
	s.results[out.Results.SessionID] = out
	s.mu.Unlock()
}

func (s *Server) lookupResult(id string) (*processor.Output, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := s.results[id]
	return out, ok
}

// runPipeline processes one uploaded video in the background.
func (s *Server) runPipeline(inputPath, outputName string) {
	defer s.release()
	defer sentry.RecoverAndCapture(s.logger)

	out, err := s.process(context.Background(), inputPath, outputName)
	if err != nil {
		s.logger.Error("Processing failed", "input", inputPath, "error", err)
		return
	}
	s.storeResult(out)
	s.logger.Info("Processing finished",
		"session_id", out.Results.SessionID,
		"completed", out.Results.Summary.TotalCompleted,
		"failed", out.Results.Summary.TotalFailed)
}

// CleanupLoop removes stale uploads and outputs until ctx is done.
func (s *Server) CleanupLoop(ctx context.Context) {
	maxAge := time.Duration(s.cfg.CleanupMaxAgeHrs) * time.Hour
	if maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupDir(s.cfg.UploadDir, maxAge)
			s.cleanupDir(s.cfg.OutputDir, maxAge)
		}
	}
}

func (s *Server) cleanupDir(dir string, maxAge time.Duration) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			s.logger.Info("Removed stale file", "file", e.Name(), "dir", dir)
		}
	}
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("Server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	}
}

// Package bootstrap wires configuration, logging and the external
// collaborators (pose estimator, blob storage) into a Service that the
// web layer and CLIs share.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/poseclient"
	infrastorage "github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/storage"
)

// Config holds all runtime settings, read from the environment with
// defaults matching the tuned production values.
type Config struct {
	Port           int
	UploadDir      string
	OutputDir      string
	MaxUploadBytes int64

	PoseServiceURL string
	GeminiAPIKey   string
	GeminiModel    string

	KeyFrameInterval float64 // seconds between sampled key frames
	FramesPerRequest int     // images per multimodal API call

	Detection rep.Config

	GCSArtifactBucket string
	SentryDSN         string
	CleanupMaxAgeHrs  int
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() *Config {
	det := rep.DefaultConfig()
	det.FullExtensionAngle = envFloat("FULL_EXTENSION_ANGLE", det.FullExtensionAngle)
	det.MinTopHold = envFloat("MIN_TOP_HOLD_S", det.MinTopHold)
	det.GapTolerance = envFloat("GAP_TOLERANCE_S", det.GapTolerance)
	det.SwingAngle = envFloat("SWING_ANGLE", det.SwingAngle)

	return &Config{
		Port:              envInt("PORT", 8000),
		UploadDir:         envStr("UPLOAD_DIR", "input_videos"),
		OutputDir:         envStr("OUTPUT_DIR", "output_videos"),
		MaxUploadBytes:    int64(envInt("MAX_UPLOAD_MB", 500)) * 1024 * 1024,
		PoseServiceURL:    envStr("POSE_SERVICE_URL", "http://localhost:9091"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       envStr("GEMINI_MODEL", "gemini-2.0-flash"),
		KeyFrameInterval:  envFloat("KEY_FRAME_INTERVAL_S", 0.5),
		FramesPerRequest:  envInt("FRAMES_PER_REQUEST", 8),
		Detection:         det,
		GCSArtifactBucket: os.Getenv("GCS_ARTIFACT_BUCKET"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		CleanupMaxAgeHrs:  envInt("CLEANUP_MAX_AGE_HOURS", 24),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Service holds initialized dependencies.
type Service struct {
	Pose   shared.PoseEstimator
	Store  shared.BlobStore
	Config *Config
}

// GetSlogHandlerOptions returns the standard handler options: message and
// severity keys match what the log collector expects.
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

// WithGroup implements slog.Handler
func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithAttrs implements slog.Handler
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newComp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			newComp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: newComp,
	}
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false
		}
		return true
	})

	if comp != "" {
		newMsg := fmt.Sprintf("[%s] %s", comp, r.Message)
		newRecord := slog.NewRecord(r.Time, r.Level, newMsg, r.PC)
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// NewLogger creates a configured logger instance. The level comes from
// LOG_LEVEL (debug/info/warn/error, default info).
func NewLogger(serviceName string) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := GetSlogHandlerOptions(level)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// NewService initializes all standard dependencies.
func NewService(ctx context.Context, logger *slog.Logger) (*Service, error) {
	cfg := LoadConfig()

	logger.Info("Initializing service",
		"pose_service", cfg.PoseServiceURL,
		"gemini_configured", cfg.GeminiAPIKey != "",
	)

	var store shared.BlobStore
	if cfg.GCSArtifactBucket != "" {
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			logger.Error("Storage init failed", "error", err)
			return nil, fmt.Errorf("storage init: %w", err)
		}
		store = &infrastorage.StorageAdapter{Client: gcsClient}
		logger.Info("Artifact store: GCS", "bucket", cfg.GCSArtifactBucket)
	} else {
		store = &infrastorage.DiskStore{Root: cfg.OutputDir}
		logger.Info("Artifact store: local disk", "root", cfg.OutputDir)
	}

	return &Service{
		Pose:   poseclient.New(cfg.PoseServiceURL),
		Store:  store,
		Config: cfg,
	}, nil
}

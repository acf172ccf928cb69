package progress

import (
	"context"
	"log/slog"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
)

// LogSink is a progress sink for runs without connected clients, such
// as the CLI. Updates go to the logger and nowhere else.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Publish(ctx context.Context, u shared.ProgressUpdate) error {
	s.Logger.Debug("Progress",
		"type", u.Type,
		"step", u.Step,
		"progress", u.Progress,
		"message", u.Message)
	return nil
}

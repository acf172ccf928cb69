// Package progress tracks the four-step processing pipeline and pushes
// updates to connected clients. Step progress is mapped onto an overall
// 0-100 scale so the frontend can render a single bar.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
)

type stepInfo struct {
	name string
	lo   float64
	hi   float64
}

// steps maps pipeline steps to their share of the overall progress bar.
// AI analysis dominates wall-clock time and gets the widest band.
var steps = map[int]stepInfo{
	shared.StepFrameExtraction: {"Frame Extraction", 0, 25},
	shared.StepAIAnalysis:      {"AI Analysis", 25, 75},
	shared.StepVideoGeneration: {"Video Generation", 75, 95},
	shared.StepSavingResults:   {"Saving Results", 95, 100},
}

// Manager tracks progress for the active processing session and
// broadcasts every change through the configured sink.
type Manager struct {
	mu        sync.Mutex
	sink      shared.ProgressSink
	logger    *slog.Logger
	current   shared.ProgressUpdate
	startTime time.Time
	now       func() time.Time
}

func NewManager(sink shared.ProgressSink, logger *slog.Logger) *Manager {
	return &Manager{
		sink:   sink,
		logger: logger,
		now:    time.Now,
		current: shared.ProgressUpdate{
			Type:     "progress",
			StepName: "Waiting",
			Message:  "Ready to process video",
		},
	}
}

// StartProcessing resets state for a new session.
func (m *Manager) StartProcessing(ctx context.Context) {
	m.mu.Lock()
	m.startTime = m.now()
	m.mu.Unlock()
	m.update(ctx, 0, "Initializing", 0, "Starting video processing...")
}

// UpdateStepProgress reports stepProgress (0-100) within one pipeline
// step, translated to the overall scale.
func (m *Manager) UpdateStepProgress(ctx context.Context, step int, stepProgress float64, message string) {
	info, ok := steps[step]
	if !ok {
		return
	}
	overall := info.lo + stepProgress/100*(info.hi-info.lo)
	m.update(ctx, step, info.name, overall, message)
}

// CompleteStep pins progress to the end of the step's band.
func (m *Manager) CompleteStep(ctx context.Context, step int) {
	info, ok := steps[step]
	if !ok {
		return
	}
	m.update(ctx, step, info.name, info.hi, info.name+" completed")
}

func (m *Manager) update(ctx context.Context, step int, stepName string, progress float64, message string) {
	m.mu.Lock()
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}

	m.current = shared.ProgressUpdate{
		Type:     "progress",
		Step:     step,
		StepName: stepName,
		Progress: progress,
		Message:  message,
	}

	// Linear ETA from overall progress so far.
	if !m.startTime.IsZero() && progress > 0 {
		elapsed := m.now().Sub(m.startTime).Seconds()
		remaining := elapsed/(progress/100) - elapsed
		if remaining < 0 {
			remaining = 0
		}
		m.current.ETA = &remaining
	}
	u := m.current
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("Progress update",
			"step", step, "step_name", stepName,
			"progress", progress, "message", message)
	}
	m.publish(ctx, u)
}

// SetError flips the session into an error state.
func (m *Manager) SetError(ctx context.Context, errMessage string) {
	m.mu.Lock()
	m.current.Type = "error"
	m.current.Error = errMessage
	m.current.Message = "Error: " + errMessage
	u := m.current
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Error("Processing error", "error", errMessage)
	}
	m.publish(ctx, u)
}

// CompleteProcessing reports 100% and announces the output file.
func (m *Manager) CompleteProcessing(ctx context.Context, outputFile string) {
	m.update(ctx, shared.StepSavingResults, "Complete", 100, "Processing completed successfully!")

	m.mu.Lock()
	m.current.Type = "complete"
	m.current.OutputFile = outputFile
	u := m.current
	m.mu.Unlock()
	m.publish(ctx, u)
}

// Snapshot returns the latest progress state for polling clients.
func (m *Manager) Snapshot() shared.ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) publish(ctx context.Context, u shared.ProgressUpdate) {
	if m.sink == nil {
		return
	}
	if err := m.sink.Publish(ctx, u); err != nil && m.logger != nil {
		m.logger.Warn("Failed to publish progress update", "error", err)
	}
}

// Package processor orchestrates the full analysis pipeline for one
// uploaded video: frame extraction, pose detection and repetition
// counting, the optional AI cross-check, overlay rendering, and saving
// results.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/analyzer"
	"github.com/filiksyos/AI-pull-up-counter/pkg/bootstrap"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/session"
	"github.com/filiksyos/AI-pull-up-counter/pkg/fitexport"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/progress"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/sentry"
)

// Processor runs the pipeline. Renderer, AI and Store are optional;
// their stages are skipped when nil or unconfigured.
type Processor struct {
	Frames   shared.FrameSource
	Pose     shared.PoseEstimator
	Renderer shared.VideoRenderer
	AI       *analyzer.Analyzer
	Store    shared.BlobStore
	Progress *progress.Manager
	Config   *bootstrap.Config
	Logger   *slog.Logger
}

// Output is everything one run produced.
type Output struct {
	Results     session.Results  `json:"results"`
	AI          *analyzer.Result `json:"ai_analysis,omitempty"`
	OutputVideo string           `json:"output_video,omitempty"`
	ResultsFile string           `json:"results_file"`
	FITFile     string           `json:"fit_file,omitempty"`
}

// Process analyzes the video at inputPath. outputName is the base name
// for the annotated mp4 and derived artifacts. Errors are reported to
// the progress channel and Sentry before being returned.
func (p *Processor) Process(ctx context.Context, inputPath, outputName string) (*Output, error) {
	sess := session.New(p.Config.Detection)
	logger := p.Logger.With("session_id", sess.ID())

	p.Progress.StartProcessing(ctx)

	out, err := p.run(ctx, sess, logger, inputPath, outputName)
	if err != nil {
		p.Progress.SetError(ctx, err.Error())
		sentry.CaptureException(err, map[string]interface{}{
			"session_id": sess.ID(),
			"input":      inputPath,
		}, logger)
		return nil, err
	}

	p.Progress.CompleteProcessing(ctx, out.OutputVideo)
	return out, nil
}

func (p *Processor) run(ctx context.Context, sess *session.ProcessingSession, logger *slog.Logger, inputPath, outputName string) (*Output, error) {
	// Step 1: sample key frames.
	p.Progress.UpdateStepProgress(ctx, shared.StepFrameExtraction, 0, "Extracting key frames...")
	frames, err := p.Frames.KeyFrames(ctx, inputPath, p.Config.KeyFrameInterval)
	if err != nil {
		return nil, fmt.Errorf("frame extraction: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted from %s", inputPath)
	}
	logger.Info("Key frames extracted", "count", len(frames))
	p.Progress.CompleteStep(ctx, shared.StepFrameExtraction)

	// Step 2: pose detection and repetition counting, then the optional
	// multimodal cross-check.
	samples := make([]shared.Sample, 0, len(frames))
	for i, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		joints, err := p.Pose.DetectJoints(ctx, f.JPEG)
		if err != nil {
			return nil, fmt.Errorf("pose detection at %.1fs: %w", f.Timestamp, err)
		}

		m := sess.ObserveFrame(pose.Frame{Index: f.Index, Timestamp: f.Timestamp, Joints: joints})
		samples = append(samples, shared.Sample{Timestamp: f.Timestamp, Joints: joints, Metrics: m})

		p.Progress.UpdateStepProgress(ctx, shared.StepAIAnalysis,
			float64(i+1)/float64(len(frames))*70,
			fmt.Sprintf("Analyzing frame %d/%d", i+1, len(frames)))
	}
	results := sess.Finalize()
	logger.Info("Repetition analysis complete",
		"completed", results.Summary.TotalCompleted,
		"failed", results.Summary.TotalFailed,
		"occlusion_skips", results.OcclusionSkips)

	var aiResult *analyzer.Result
	if p.AI != nil {
		p.Progress.UpdateStepProgress(ctx, shared.StepAIAnalysis, 70, "Running AI cross-check...")
		aiResult = p.AI.Analyze(ctx, frames)
	}
	p.Progress.CompleteStep(ctx, shared.StepAIAnalysis)

	// Step 3: annotated output video.
	var outputVideo string
	if p.Renderer != nil {
		if err := os.MkdirAll(p.Config.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
		outputPath := filepath.Join(p.Config.OutputDir, outputName)
		err := p.Renderer.Render(ctx, inputPath, outputPath, samples, results.Events, func(pct float64) {
			p.Progress.UpdateStepProgress(ctx, shared.StepVideoGeneration, pct, "Rendering annotated video...")
		})
		if err != nil {
			return nil, fmt.Errorf("video generation: %w", err)
		}
		outputVideo = outputName
	}
	p.Progress.CompleteStep(ctx, shared.StepVideoGeneration)

	// Step 4: persist results.
	p.Progress.UpdateStepProgress(ctx, shared.StepSavingResults, 0, "Saving results...")
	out := &Output{Results: results, AI: aiResult, OutputVideo: outputVideo}
	if err := p.saveResults(ctx, logger, out, outputName); err != nil {
		return nil, err
	}
	p.Progress.CompleteStep(ctx, shared.StepSavingResults)

	return out, nil
}

func (p *Processor) saveResults(ctx context.Context, logger *slog.Logger, out *Output, outputName string) error {
	if err := os.MkdirAll(p.Config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	base := strings.TrimSuffix(outputName, filepath.Ext(outputName))

	resultsJSON, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	out.ResultsFile = base + "_analysis.json"
	resultsPath := filepath.Join(p.Config.OutputDir, out.ResultsFile)
	if err := os.WriteFile(resultsPath, resultsJSON, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	// FIT export is best-effort; a session with zero attempts has
	// nothing to encode.
	if len(out.Results.Events) > 0 {
		started := out.Results.ProcessedAt.Add(-time.Duration(videoSpan(out.Results.Events) * float64(time.Second)))
		if fitData, err := fitexport.Generate(out.Results.Events, started, videoSpan(out.Results.Events)); err != nil {
			logger.Warn("FIT export failed", "error", err)
		} else {
			out.FITFile = base + ".fit"
			if err := os.WriteFile(filepath.Join(p.Config.OutputDir, out.FITFile), fitData, 0o644); err != nil {
				logger.Warn("FIT write failed", "error", err)
				out.FITFile = ""
			}
		}
	}

	if p.Store != nil && p.Config.GCSArtifactBucket != "" {
		p.archive(ctx, logger, resultsJSON, out)
	}
	return nil
}

// archive copies the artifacts to the configured bucket. Failures are
// logged, never fatal.
func (p *Processor) archive(ctx context.Context, logger *slog.Logger, resultsJSON []byte, out *Output) {
	bucket := p.Config.GCSArtifactBucket

	if err := p.Store.Write(ctx, bucket, out.ResultsFile, resultsJSON); err != nil {
		logger.Warn("Archive results failed", "error", err)
	}
	if out.OutputVideo != "" {
		videoBytes, err := os.ReadFile(filepath.Join(p.Config.OutputDir, out.OutputVideo))
		if err == nil {
			err = p.Store.Write(ctx, bucket, out.OutputVideo, videoBytes)
		}
		if err != nil {
			logger.Warn("Archive video failed", "error", err)
		}
	}
}

// videoSpan is the end time of the last event, a lower bound on the
// session duration used for the FIT session message.
func videoSpan(events []rep.Event) float64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].EndTime
}

// Package analyzer runs a multimodal cross-check of the pose pipeline
// using Google Gemini. It ships key frames to the model in batches and
// asks for the same repetition-event JSON the pipeline produces. The
// pipeline never depends on it for correctness; any failure degrades to
// a skipped result.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
)

// Gemini Flash pricing per input image, used for the cost estimate
// surfaced in processing stats.
const costPerImage = 0.000619

// Status of an analysis run.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
)

// Result is the combined outcome of all batches.
type Result struct {
	Status          string            `json:"status"`
	Reason          string            `json:"reason,omitempty"`
	PullUps         []rep.Event       `json:"pull_ups"`
	Summary         rep.Summary       `json:"summary"`
	OverallAnalysis map[string]string `json:"overall_analysis,omitempty"`
	Stats           Stats             `json:"processing_stats"`
}

// Stats describes how much work the analysis cost.
type Stats struct {
	FramesAnalyzed int     `json:"total_frames_analyzed"`
	APICalls       int     `json:"api_calls_made"`
	Model          string  `json:"model_used"`
	EstimatedCost  float64 `json:"estimated_cost_usd"`
}

// batchResponse is the JSON shape the prompt asks the model for. Extra
// bookkeeping fields in the model's output are ignored.
type batchResponse struct {
	PullUps         []rep.Event       `json:"pull_ups"`
	OverallAnalysis map[string]string `json:"overall_analysis"`
}

// Analyzer batches key frames through Gemini.
type Analyzer struct {
	APIKey    string
	Model     string
	BatchSize int
	Logger    *slog.Logger

	// generate is swapped out in tests to avoid network calls.
	generate func(ctx context.Context, parts []genai.Part) (string, error)
}

func New(apiKey, model string, batchSize int, logger *slog.Logger) *Analyzer {
	a := &Analyzer{
		APIKey:    apiKey,
		Model:     model,
		BatchSize: batchSize,
		Logger:    logger,
	}
	a.generate = a.generateWithGemini
	return a
}

// Analyze runs every batch and combines the responses. A missing API
// key or total batch failure returns a skipped result, never an error.
func (a *Analyzer) Analyze(ctx context.Context, frames []shared.KeyFrame) *Result {
	if a.APIKey == "" {
		a.Logger.Warn("GEMINI_API_KEY not set, skipping AI analysis")
		return &Result{Status: StatusSkipped, Reason: "api_key_not_configured"}
	}
	if len(frames) == 0 {
		return &Result{Status: StatusSkipped, Reason: "no_frames"}
	}

	batches := splitBatches(frames, a.BatchSize)
	a.Logger.Info("Starting AI analysis",
		"frames", len(frames), "batches", len(batches), "model", a.Model)

	var (
		pullUps  []rep.Event
		overall  map[string]string
		analyzed int
		calls    int
	)

	for i, batch := range batches {
		calls++
		raw, err := a.generate(ctx, buildParts(batch))
		if err != nil {
			a.Logger.Error("AI batch failed",
				"batch", i+1, "of", len(batches), "error", err)
			continue
		}

		var br batchResponse
		if err := json.Unmarshal([]byte(stripFence(raw)), &br); err != nil {
			a.Logger.Warn("Failed to parse AI response JSON",
				"batch", i+1, "error", err)
			continue
		}

		pullUps = append(pullUps, br.PullUps...)
		analyzed += len(batch)
		if br.OverallAnalysis != nil {
			overall = br.OverallAnalysis
		}
	}

	if analyzed == 0 {
		return &Result{
			Status: StatusSkipped,
			Reason: "all_batches_failed",
			Stats:  Stats{APICalls: calls, Model: a.Model},
		}
	}

	a.Logger.Info("AI analysis complete", "events", len(pullUps), "api_calls", calls)
	return &Result{
		Status:          StatusSuccess,
		PullUps:         pullUps,
		Summary:         rep.Summarize(pullUps),
		OverallAnalysis: overall,
		Stats: Stats{
			FramesAnalyzed: analyzed,
			APICalls:       calls,
			Model:          a.Model,
			EstimatedCost:  EstimateCost(analyzed),
		},
	}
}

func (a *Analyzer) generateWithGemini(ctx context.Context, parts []genai.Part) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.Model)

	// Low temperature keeps frame judgments consistent across batches.
	model.SetTemperature(0.1)
	model.SetMaxOutputTokens(4000)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return out.String(), nil
}

// buildParts assembles one request: the prompt followed by the batch's
// JPEG frames.
func buildParts(batch []shared.KeyFrame) []genai.Part {
	timestamps := make([]float64, len(batch))
	for i, f := range batch {
		timestamps[i] = f.Timestamp
	}

	parts := make([]genai.Part, 0, len(batch)+1)
	parts = append(parts, genai.Text(buildAnalysisPrompt(timestamps)))
	for _, f := range batch {
		parts = append(parts, genai.ImageData("jpeg", f.JPEG))
	}
	return parts
}

func splitBatches(frames []shared.KeyFrame, size int) [][]shared.KeyFrame {
	if size <= 0 {
		size = 8
	}
	var batches [][]shared.KeyFrame
	for i := 0; i < len(frames); i += size {
		end := i + size
		if end > len(frames) {
			end = len(frames)
		}
		batches = append(batches, frames[i:end])
	}
	return batches
}

// stripFence removes markdown code fencing the model sometimes wraps
// around its JSON.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// EstimateCost approximates the request cost in USD for a frame count.
func EstimateCost(numFrames int) float64 {
	return float64(numFrames) * costPerImage
}

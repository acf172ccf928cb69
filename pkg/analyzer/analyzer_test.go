package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/generative-ai-go/genai"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
)

func testAnalyzer(apiKey string) *Analyzer {
	return New(apiKey, "gemini-2.0-flash", 8,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func keyFrames(n int) []shared.KeyFrame {
	frames := make([]shared.KeyFrame, n)
	for i := range frames {
		frames[i] = shared.KeyFrame{
			Index:     i,
			Timestamp: float64(i) * 0.5,
			JPEG:      []byte{0xff, 0xd8, byte(i)},
		}
	}
	return frames
}

const batchJSON = `{
	"pull_ups": [
		{
			"timestamp_start": "0:01.0",
			"timestamp_peak": "0:02.0",
			"timestamp_end": "0:03.0",
			"result": "completed",
			"failure_reason": null,
			"form_score": 85,
			"feedback": "Good form - keep core tight"
		}
	],
	"overall_analysis": {"body_alignment": "good"}
}`

func TestAnalyze_NoAPIKeySkips(t *testing.T) {
	a := testAnalyzer("")
	res := a.Analyze(context.Background(), keyFrames(4))

	if res.Status != StatusSkipped {
		t.Errorf("status = %q, want skipped", res.Status)
	}
	if res.Reason != "api_key_not_configured" {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestAnalyze_NoFramesSkips(t *testing.T) {
	a := testAnalyzer("key")
	res := a.Analyze(context.Background(), nil)

	if res.Status != StatusSkipped || res.Reason != "no_frames" {
		t.Errorf("result = %+v", res)
	}
}

func TestAnalyze_CombinesBatches(t *testing.T) {
	a := testAnalyzer("key")

	var batchSizes []int
	a.generate = func(ctx context.Context, parts []genai.Part) (string, error) {
		// One text prompt plus the batch's images.
		batchSizes = append(batchSizes, len(parts)-1)
		return "```json\n" + batchJSON + "\n```", nil
	}

	res := a.Analyze(context.Background(), keyFrames(10))

	if res.Status != StatusSuccess {
		t.Fatalf("status = %q, want success", res.Status)
	}
	if len(batchSizes) != 2 || batchSizes[0] != 8 || batchSizes[1] != 2 {
		t.Errorf("batch sizes = %v, want [8 2]", batchSizes)
	}
	if len(res.PullUps) != 2 {
		t.Fatalf("pull_ups = %d, want 2 (one per batch)", len(res.PullUps))
	}
	if res.PullUps[0].Result != rep.ResultCompleted || res.PullUps[0].FormScore != 85 {
		t.Errorf("event = %+v", res.PullUps[0])
	}
	if res.Summary.TotalCompleted != 2 || res.Summary.SuccessRate != 100 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if res.Stats.FramesAnalyzed != 10 || res.Stats.APICalls != 2 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.OverallAnalysis["body_alignment"] != "good" {
		t.Errorf("overall = %v", res.OverallAnalysis)
	}
}

func TestAnalyze_AllBatchesFailSkips(t *testing.T) {
	a := testAnalyzer("key")
	a.generate = func(ctx context.Context, parts []genai.Part) (string, error) {
		return "", errors.New("quota exceeded")
	}

	res := a.Analyze(context.Background(), keyFrames(3))

	if res.Status != StatusSkipped || res.Reason != "all_batches_failed" {
		t.Errorf("result = %+v", res)
	}
	if res.Stats.APICalls != 1 {
		t.Errorf("api calls = %d, want 1", res.Stats.APICalls)
	}
}

func TestAnalyze_PartialFailureStillSucceeds(t *testing.T) {
	a := testAnalyzer("key")

	call := 0
	a.generate = func(ctx context.Context, parts []genai.Part) (string, error) {
		call++
		if call == 1 {
			return "", errors.New("transient")
		}
		return batchJSON, nil
	}

	res := a.Analyze(context.Background(), keyFrames(10))

	if res.Status != StatusSuccess {
		t.Fatalf("status = %q, want success", res.Status)
	}
	if res.Stats.FramesAnalyzed != 2 {
		t.Errorf("frames analyzed = %d, want 2 (second batch only)", res.Stats.FramesAnalyzed)
	}
	if len(res.PullUps) != 1 {
		t.Errorf("pull_ups = %d, want 1", len(res.PullUps))
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFence(tt.in); got != tt.want {
				t.Errorf("stripFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEstimateCost(t *testing.T) {
	got := EstimateCost(1000)
	if got < 0.618 || got > 0.620 {
		t.Errorf("EstimateCost(1000) = %v, want ~0.619", got)
	}
}

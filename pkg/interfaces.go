package shared

import (
	"context"

	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
)

// --- Pose Estimation Interfaces ---

// PoseEstimator detects the nine upper-body landmarks in one JPEG frame.
// Returns (nil, nil) when no body is found; that is a data gap, not an
// error.
type PoseEstimator interface {
	DetectJoints(ctx context.Context, jpegFrame []byte) (*pose.JointSet, error)
}

// --- Video Interfaces ---

// KeyFrame is one sampled video frame, JPEG-encoded for pose estimation
// and multimodal analysis.
type KeyFrame struct {
	Index     int
	Timestamp float64 // seconds from video start
	JPEG      []byte
}

// FrameSource samples key frames from a video file at a fixed interval.
type FrameSource interface {
	KeyFrames(ctx context.Context, videoPath string, interval float64) ([]KeyFrame, error)
}

// --- Progress Interfaces ---

// ProgressUpdate is the progress payload broadcast to clients while a
// video is being processed.
type ProgressUpdate struct {
	Type       string   `json:"type"` // "progress", "error" or "complete"
	Step       int      `json:"step"`
	StepName   string   `json:"step_name"`
	Progress   float64  `json:"progress"` // percent [0,100]
	Message    string   `json:"message"`
	ETA        *float64 `json:"eta"` // seconds remaining, nil when unknown
	Error      string   `json:"error,omitempty"`
	OutputFile string   `json:"output_file,omitempty"`
}

// ProgressSink receives progress updates. Implementations must be safe
// for calls from the processing goroutine.
type ProgressSink interface {
	Publish(ctx context.Context, u ProgressUpdate) error
}

// --- Rendering Interfaces ---

// Sample pairs one key frame's detection with its derived metrics, for
// overlay rendering. Joints and Metrics are nil on detection gaps.
type Sample struct {
	Timestamp float64
	Joints    *pose.JointSet
	Metrics   *pose.FrameMetrics
}

// VideoRenderer writes the annotated output video. Implementations that
// need OpenCV live behind this interface so the pipeline can be tested
// without it.
type VideoRenderer interface {
	Render(ctx context.Context, inputPath, outputPath string, samples []Sample, events []rep.Event, onProgress func(pct float64)) error
}

// --- Storage Interfaces ---

// BlobStore archives processing artifacts (output videos, result JSON).
type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}

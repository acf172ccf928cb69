package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/bootstrap"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/geometry"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/progress"
	"github.com/filiksyos/AI-pull-up-counter/pkg/testing/mocks"
)

// repElbows/repChins describe one clean repetition at 0.3s spacing.
var (
	repElbows = []float64{175, 170, 130, 90, 60, 90, 130, 170, 175}
	repChins  = []float64{0.1, 0.1, 0.05, 0, -0.06, -0.02, 0.05, 0.1, 0.1}
)

func jointsWith(elbowDeg, chinOffset float64) *pose.JointSet {
	theta := elbowDeg * math.Pi / 180
	const reach = 0.15

	leftElbow := geometry.Point3D{X: 0.42, Y: 0.35}
	rightElbow := geometry.Point3D{X: 0.58, Y: 0.35}

	return &pose.JointSet{
		Nose:          geometry.Point3D{X: 0.5, Y: 0.5 + chinOffset},
		LeftShoulder:  geometry.Point3D{X: 0.42, Y: 0.5},
		RightShoulder: geometry.Point3D{X: 0.58, Y: 0.5},
		LeftElbow:     leftElbow,
		RightElbow:    rightElbow,
		LeftWrist: geometry.Point3D{
			X: leftElbow.X + reach*math.Sin(theta),
			Y: leftElbow.Y + reach*math.Cos(theta),
		},
		RightWrist: geometry.Point3D{
			X: rightElbow.X - reach*math.Sin(theta),
			Y: rightElbow.Y + reach*math.Cos(theta),
		},
		LeftHip:  geometry.Point3D{X: 0.45, Y: 0.8},
		RightHip: geometry.Point3D{X: 0.55, Y: 0.8},
	}
}

func repFrameSource() *mocks.MockFrameSource {
	return &mocks.MockFrameSource{
		KeyFramesFunc: func(ctx context.Context, path string, interval float64) ([]shared.KeyFrame, error) {
			frames := make([]shared.KeyFrame, len(repElbows))
			for i := range frames {
				frames[i] = shared.KeyFrame{
					Index:     i,
					Timestamp: float64(i) * 0.3,
					JPEG:      []byte{byte(i)},
				}
			}
			return frames, nil
		},
	}
}

func repPoseEstimator() *mocks.MockPoseEstimator {
	return &mocks.MockPoseEstimator{
		DetectJointsFunc: func(ctx context.Context, jpegFrame []byte) (*pose.JointSet, error) {
			i := int(jpegFrame[0])
			return jointsWith(repElbows[i], repChins[i]), nil
		},
	}
}

func newTestProcessor(t *testing.T, sink *mocks.MockProgressSink) *Processor {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Processor{
		Frames:   repFrameSource(),
		Pose:     repPoseEstimator(),
		Progress: progress.NewManager(sink, logger),
		Config: &bootstrap.Config{
			OutputDir: t.TempDir(),
			Detection: rep.DefaultConfig(),
		},
		Logger: logger,
	}
}

func TestProcess_CountsOneRep(t *testing.T) {
	sink := &mocks.MockProgressSink{}
	p := newTestProcessor(t, sink)

	out, err := p.Process(context.Background(), "workout.mp4", "analyzed_workout.mp4")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if out.Results.Summary.TotalCompleted != 1 {
		t.Errorf("completed = %d, want 1", out.Results.Summary.TotalCompleted)
	}
	if out.Results.Summary.TotalFailed != 0 {
		t.Errorf("failed = %d, want 0", out.Results.Summary.TotalFailed)
	}

	if out.ResultsFile == "" {
		t.Fatal("no results file recorded")
	}
	if _, err := os.Stat(filepath.Join(p.Config.OutputDir, out.ResultsFile)); err != nil {
		t.Errorf("results file missing: %v", err)
	}
	if out.FITFile == "" {
		t.Error("expected a FIT export for a session with events")
	} else if _, err := os.Stat(filepath.Join(p.Config.OutputDir, out.FITFile)); err != nil {
		t.Errorf("FIT file missing: %v", err)
	}

	if len(sink.Updates) == 0 {
		t.Fatal("no progress updates published")
	}
	last := sink.Updates[len(sink.Updates)-1]
	if last.Type != "complete" {
		t.Errorf("final update type = %q, want complete", last.Type)
	}
}

func TestProcess_PoseErrorReported(t *testing.T) {
	sink := &mocks.MockProgressSink{}
	p := newTestProcessor(t, sink)
	p.Pose = &mocks.MockPoseEstimator{
		DetectJointsFunc: func(ctx context.Context, jpegFrame []byte) (*pose.JointSet, error) {
			return nil, errors.New("sidecar down")
		},
	}

	if _, err := p.Process(context.Background(), "workout.mp4", "out.mp4"); err == nil {
		t.Fatal("expected error")
	}

	last := sink.Updates[len(sink.Updates)-1]
	if last.Type != "error" {
		t.Errorf("final update type = %q, want error", last.Type)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	sink := &mocks.MockProgressSink{}
	p := newTestProcessor(t, sink)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p.Pose = &mocks.MockPoseEstimator{
		DetectJointsFunc: func(ctx context.Context, jpegFrame []byte) (*pose.JointSet, error) {
			calls++
			if calls == 3 {
				cancel()
			}
			i := int(jpegFrame[0])
			return jointsWith(repElbows[i], repChins[i]), nil
		},
	}

	_, err := p.Process(ctx, "workout.mp4", "out.mp4")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls > 4 {
		t.Errorf("pose calls after cancel: %d", calls)
	}
}

type fakeRenderer struct {
	called  bool
	samples int
	events  int
}

func (f *fakeRenderer) Render(ctx context.Context, inputPath, outputPath string, samples []shared.Sample, events []rep.Event, onProgress func(pct float64)) error {
	f.called = true
	f.samples = len(samples)
	f.events = len(events)
	onProgress(50)
	return os.WriteFile(outputPath, []byte("mp4"), 0o644)
}

func TestProcess_RendererProducesVideo(t *testing.T) {
	sink := &mocks.MockProgressSink{}
	p := newTestProcessor(t, sink)
	r := &fakeRenderer{}
	p.Renderer = r

	out, err := p.Process(context.Background(), "workout.mp4", "analyzed.mp4")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !r.called {
		t.Fatal("renderer not invoked")
	}
	if r.samples != len(repElbows) || r.events != 1 {
		t.Errorf("renderer got %d samples, %d events", r.samples, r.events)
	}
	if out.OutputVideo != "analyzed.mp4" {
		t.Errorf("output video = %q", out.OutputVideo)
	}
	if _, err := os.Stat(filepath.Join(p.Config.OutputDir, "analyzed.mp4")); err != nil {
		t.Errorf("output video missing: %v", err)
	}

	last := sink.Updates[len(sink.Updates)-1]
	if last.OutputFile != "analyzed.mp4" {
		t.Errorf("completion output file = %q", last.OutputFile)
	}
}

func TestProcess_ArchivesWhenBucketConfigured(t *testing.T) {
	sink := &mocks.MockProgressSink{}
	p := newTestProcessor(t, sink)
	p.Config.GCSArtifactBucket = "pullup-artifacts"

	var archived []string
	p.Store = &mocks.MockBlobStore{
		WriteFunc: func(ctx context.Context, bucket, object string, data []byte) error {
			if bucket != "pullup-artifacts" {
				t.Errorf("bucket = %q", bucket)
			}
			archived = append(archived, object)
			return nil
		},
	}
	p.Renderer = &fakeRenderer{}

	if _, err := p.Process(context.Background(), "workout.mp4", "analyzed.mp4"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(archived) != 2 {
		t.Fatalf("archived objects = %v, want results JSON and video", archived)
	}
}

package session

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/geometry"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
)

// jointsWith builds a symmetric pose whose elbow angle and chin offset
// come out to the given values. Hips sit directly below the shoulders
// so body alignment is zero.
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

// fullRepFrames is one clean repetition: dead hang, pull to chin over
// bar, return to full extension. 0.3s frame spacing.
func fullRepFrames() []pose.Frame {
	elbows := []float64{175, 170, 130, 90, 60, 90, 130, 170, 175}
	chins := []float64{0.1, 0.1, 0.05, 0, -0.06, -0.02, 0.05, 0.1, 0.1}

	frames := make([]pose.Frame, len(elbows))
	for i := range elbows {
		frames[i] = pose.Frame{
			Index:     i,
			Timestamp: float64(i) * 0.3,
			Joints:    jointsWith(elbows[i], chins[i]),
		}
	}
	return frames
}

func TestProcessFrames_FullRep(t *testing.T) {
	s := New(rep.DefaultConfig())
	if s.ID() == "" {
		t.Fatal("session ID must not be empty")
	}

	ch := make(chan pose.Frame)
	go func() {
		for _, f := range fullRepFrames() {
			ch <- f
		}
		close(ch)
	}()

	if err := s.ProcessFrames(context.Background(), ch); err != nil {
		t.Fatalf("ProcessFrames: %v", err)
	}

	results := s.Finalize()
	if results.SessionID != s.ID() {
		t.Errorf("results session ID = %q, want %q", results.SessionID, s.ID())
	}
	if len(results.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(results.Events))
	}
	if results.Events[0].Result != rep.ResultCompleted {
		t.Errorf("result = %q, want completed", results.Events[0].Result)
	}
	if results.Summary.TotalCompleted != 1 || results.Summary.TotalAttempts != 1 {
		t.Errorf("summary = %+v", results.Summary)
	}
	if results.OcclusionSkips != 0 {
		t.Errorf("occlusion skips = %d, want 0", results.OcclusionSkips)
	}
	if len(results.Frames) != 9 {
		t.Errorf("frame records = %d, want 9", len(results.Frames))
	}
	if results.Frames[4].Metrics == nil || results.Frames[4].Metrics.Phase != pose.PhaseTopPosition {
		t.Errorf("peak frame metrics = %+v", results.Frames[4].Metrics)
	}
}

func TestProcessFrames_CancelDiscardsInFlightRep(t *testing.T) {
	s := New(rep.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	// Feed through the top of the pull, then cancel before the descent.
	ch := make(chan pose.Frame)
	done := make(chan error, 1)
	go func() { done <- s.ProcessFrames(ctx, ch) }()

	for _, f := range fullRepFrames()[:5] {
		ch <- f
	}
	cancel()

	if err := <-done; err != context.Canceled {
		t.Fatalf("ProcessFrames error = %v, want context.Canceled", err)
	}

	results := s.Finalize()
	if len(results.Events) != 0 {
		t.Fatalf("cancelled session emitted %d events, want 0", len(results.Events))
	}
}

func TestFinalize_Idempotent(t *testing.T) {
	s := New(rep.DefaultConfig())
	for _, f := range fullRepFrames() {
		s.ObserveFrame(f)
	}

	first := s.Finalize()
	second := s.Finalize()
	if !reflect.DeepEqual(first.Events, second.Events) {
		t.Error("repeated Finalize changed events")
	}
	if first.Summary != second.Summary {
		t.Error("repeated Finalize changed summary")
	}
}

func TestObserveFrame_NilJointsRecordedAsGap(t *testing.T) {
	s := New(rep.DefaultConfig())
	m := s.ObserveFrame(pose.Frame{Index: 0, Timestamp: 0, Joints: nil})
	if m != nil {
		t.Fatalf("metrics for nil joints = %+v, want nil", m)
	}

	results := s.Finalize()
	if len(results.Frames) != 1 || results.Frames[0].Metrics != nil {
		t.Errorf("frame records = %+v", results.Frames)
	}
}

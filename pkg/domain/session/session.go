// Package session ties one video's frame stream to the repetition
// aggregator and collects the per-frame metric series. One
// ProcessingSession per video; not safe for concurrent mutation.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
)

// FrameRecord pairs a frame's timing with its computed metrics. Metrics
// is nil when no body was detected in the frame.
type FrameRecord struct {
	Index     int                `json:"index"`
	Timestamp float64            `json:"timestamp"`
	Metrics   *pose.FrameMetrics `json:"metrics"`
}

// Results is the complete output of one processing session.
type Results struct {
	SessionID      string        `json:"session_id"`
	Events         []rep.Event   `json:"repetition_events"`
	Summary        rep.Summary   `json:"summary"`
	OcclusionSkips int           `json:"occlusion_skips"`
	Frames         []FrameRecord `json:"frames,omitempty"`
	ProcessedAt    time.Time     `json:"processed_at"`
}

// ProcessingSession consumes a time-ordered frame stream, extracts
// metrics, and drives the repetition aggregator.
type ProcessingSession struct {
	id        string
	agg       *rep.Aggregator
	frames    []FrameRecord
	finalized bool
	now       func() time.Time
}

func New(cfg rep.Config) *ProcessingSession {
	return &ProcessingSession{
		id:  uuid.New().String(),
		agg: rep.NewAggregator(cfg),
		now: time.Now,
	}
}

// ID returns the session's unique identifier.
func (s *ProcessingSession) ID() string { return s.id }

// ObserveFrame extracts metrics from one frame and feeds the
// aggregator. Frames with no detected joints still advance the gap
// clock inside the aggregator.
func (s *ProcessingSession) ObserveFrame(frame pose.Frame) *pose.FrameMetrics {
	m := pose.ExtractMetrics(frame.Joints)
	s.frames = append(s.frames, FrameRecord{
		Index:     frame.Index,
		Timestamp: frame.Timestamp,
		Metrics:   m,
	})
	s.agg.Feed(frame, m)
	return m
}

// ProcessFrames drains the channel, observing each frame. Context
// cancellation stops consumption and discards any in-progress
// repetition; a cancelled session never emits a partial event.
func (s *ProcessingSession) ProcessFrames(ctx context.Context, frames <-chan pose.Frame) error {
	for {
		select {
		case <-ctx.Done():
			// Skipping the aggregator's end-of-stream finalization drops
			// any repetition still in flight.
			s.finalized = true
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			s.ObserveFrame(frame)
		}
	}
}

// Finalize closes the stream, finishing any dangling repetition, and
// returns the session results. Safe to call once; later calls return
// the same data.
func (s *ProcessingSession) Finalize() Results {
	if !s.finalized {
		s.agg.Finish()
		s.finalized = true
	}
	events := s.agg.Events()
	return Results{
		SessionID:      s.id,
		Events:         events,
		Summary:        rep.Summarize(events),
		OcclusionSkips: s.agg.OcclusionSkips(),
		Frames:         s.frames,
		ProcessedAt:    s.now(),
	}
}

// Counts reports completed and failed repetitions so far.
func (s *ProcessingSession) Counts() (completed, failed int) {
	return s.agg.Counts()
}

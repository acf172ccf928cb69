// Package rep detects discrete pull-up repetitions from a time-ordered
// stream of classified frames and summarizes them. The per-frame stages in
// pkg/domain/pose are memoryless; this package holds all temporal state.
package rep

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Result is the outcome of one repetition attempt.
type Result string

const (
	ResultCompleted Result = "completed"
	ResultFailed    Result = "failed"
)

// FailureReason is the closed vocabulary of failure causes. Empty unless
// the result is failed.
type FailureReason string

const (
	FailureChinNotOverBar      FailureReason = "chin_not_over_bar"
	FailureIncompleteExtension FailureReason = "incomplete_extension"
	FailureExcessiveSwinging   FailureReason = "excessive_swinging"
)

// Event is one detected repetition attempt. Immutable once emitted by the
// aggregator; times are seconds from video start with
// StartTime <= PeakTime <= EndTime.
type Event struct {
	StartTime     float64
	PeakTime      float64
	EndTime       float64
	Result        Result
	FailureReason FailureReason
	FormScore     int // score at the peak frame, [0,100]
	Feedback      string
}

// Validate reports whether the event satisfies its structural invariants.
func (e Event) Validate() error {
	if e.StartTime > e.PeakTime || e.PeakTime > e.EndTime {
		return fmt.Errorf("event times out of order: start=%v peak=%v end=%v",
			e.StartTime, e.PeakTime, e.EndTime)
	}
	if e.FormScore < 0 || e.FormScore > 100 {
		return fmt.Errorf("form score %d outside [0,100]", e.FormScore)
	}
	if e.Result == ResultFailed && e.FailureReason == "" {
		return fmt.Errorf("failed event missing failure reason")
	}
	if e.Result == ResultCompleted && e.FailureReason != "" {
		return fmt.Errorf("completed event carries failure reason %q", e.FailureReason)
	}
	return nil
}

// eventJSON is the wire form consumed by the overlay renderer and the web
// client. Field names and the M:SS.s timestamp format are a compatibility
// contract; do not rename.
type eventJSON struct {
	TimestampStart string  `json:"timestamp_start"`
	TimestampPeak  string  `json:"timestamp_peak"`
	TimestampEnd   string  `json:"timestamp_end"`
	Result         Result  `json:"result"`
	FailureReason  *string `json:"failure_reason"`
	FormScore      int     `json:"form_score"`
	Feedback       string  `json:"feedback"`
}

// MarshalJSON renders the event in the wire format.
func (e Event) MarshalJSON() ([]byte, error) {
	w := eventJSON{
		TimestampStart: FormatTimestamp(e.StartTime),
		TimestampPeak:  FormatTimestamp(e.PeakTime),
		TimestampEnd:   FormatTimestamp(e.EndTime),
		Result:         e.Result,
		FormScore:      e.FormScore,
		Feedback:       e.Feedback,
	}
	if e.FailureReason != "" {
		r := string(e.FailureReason)
		w.FailureReason = &r
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire format back into an Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	start, err := ParseTimestamp(w.TimestampStart)
	if err != nil {
		return fmt.Errorf("timestamp_start: %w", err)
	}
	peak, err := ParseTimestamp(w.TimestampPeak)
	if err != nil {
		return fmt.Errorf("timestamp_peak: %w", err)
	}
	end, err := ParseTimestamp(w.TimestampEnd)
	if err != nil {
		return fmt.Errorf("timestamp_end: %w", err)
	}

	e.StartTime = start
	e.PeakTime = peak
	e.EndTime = end
	e.Result = w.Result
	e.FormScore = w.FormScore
	e.Feedback = w.Feedback
	e.FailureReason = ""
	if w.FailureReason != nil {
		e.FailureReason = FailureReason(*w.FailureReason)
	}
	return nil
}

// FormatTimestamp renders seconds as "M:SS.s", e.g. 65.23 -> "1:05.2".
// Wire timestamps carry tenth-of-a-second resolution.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	// Round to tenths first so 59.96 becomes 1:00.0, not 0:60.0.
	tenths := math.Round(seconds * 10)
	m := int(tenths) / 600
	s := (tenths - float64(m)*600) / 10
	return fmt.Sprintf("%d:%04.1f", m, s)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(ts string) (float64, error) {
	mPart, sPart, ok := strings.Cut(ts, ":")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	m, err := strconv.Atoi(mPart)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid minutes in timestamp %q", ts)
	}
	s, err := strconv.ParseFloat(sPart, 64)
	if err != nil || s < 0 || s >= 60 {
		return 0, fmt.Errorf("invalid seconds in timestamp %q", ts)
	}
	return float64(m)*60 + s, nil
}

// Summary aggregates all attempts of one video.
type Summary struct {
	TotalCompleted   int     `json:"total_completed"`
	TotalFailed      int     `json:"total_failed"`
	TotalAttempts    int     `json:"total_attempts"`
	SuccessRate      float64 `json:"success_rate"`       // percent, 1 decimal
	AverageFormScore float64 `json:"average_form_score"` // 1 decimal
}

// Summarize computes the summary statistics for a sequence of events.
func Summarize(events []Event) Summary {
	var s Summary
	scores := make([]float64, 0, len(events))

	for _, e := range events {
		switch e.Result {
		case ResultCompleted:
			s.TotalCompleted++
		case ResultFailed:
			s.TotalFailed++
		}
		scores = append(scores, float64(e.FormScore))
	}

	s.TotalAttempts = s.TotalCompleted + s.TotalFailed
	if s.TotalAttempts > 0 {
		rate := float64(s.TotalCompleted) / float64(s.TotalAttempts) * 100
		s.SuccessRate = math.Round(rate*10) / 10
		s.AverageFormScore = math.Round(stat.Mean(scores, nil)*10) / 10
	}
	return s
}

// feedbackFor picks a short coaching cue for a finished attempt. Messages
// stay under twelve words.
func feedbackFor(result Result, reason FailureReason, score int) string {
	if result == ResultFailed {
		switch reason {
		case FailureChinNotOverBar:
			return "Pull higher - chin must clear the bar"
		case FailureIncompleteExtension:
			return "Extend arms fully at the bottom"
		case FailureExcessiveSwinging:
			return "Reduce swinging - keep the core braced"
		}
		return "Incomplete attempt - control the full range"
	}

	switch {
	case score >= 90:
		return "Excellent form - keep it up"
	case score >= 75:
		return "Good rep - tighten body alignment"
	default:
		return "Completed - slow down and control the movement"
	}
}

package rep

import (
	"math"

	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
)

// Config holds the temporal thresholds of the aggregator. Zero values are
// replaced by the defaults, so Config{} behaves like DefaultConfig().
type Config struct {
	// FullExtensionAngle is the average elbow angle, in degrees, that
	// counts as fully re-extended arms at the bottom of a rep.
	FullExtensionAngle float64

	// MinTopHold is the minimum time, in seconds, the chin must stay
	// over the bar for the attempt to count as having reached the top.
	MinTopHold float64

	// GapTolerance is the longest run of undetected frames, in seconds,
	// an in-progress attempt survives. Longer occlusions abandon it.
	GapTolerance float64

	// SwingAngle is the body-alignment angle, in degrees, above which a
	// frame counts as swinging. An attempt swinging for most of its
	// frames fails with excessive_swinging.
	SwingAngle float64
}

// DefaultConfig returns the tuned production thresholds.
func DefaultConfig() Config {
	return Config{
		FullExtensionAngle: 170,
		MinTopHold:         0.2,
		GapTolerance:       1.0,
		SwingAngle:         25,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FullExtensionAngle == 0 {
		c.FullExtensionAngle = d.FullExtensionAngle
	}
	if c.MinTopHold == 0 {
		c.MinTopHold = d.MinTopHold
	}
	if c.GapTolerance == 0 {
		c.GapTolerance = d.GapTolerance
	}
	if c.SwingAngle == 0 {
		c.SwingAngle = d.SwingAngle
	}
	return c
}

// attempt is the aggregator's in-progress repetition.
type attempt struct {
	startTime float64

	peakTime   float64
	peakOffset float64
	peakScore  int

	// Deepest average elbow angle seen. An attempt only qualifies as a
	// real rep attempt once flexion crosses the ascending boundary;
	// shallow bobbing between hanging and ascending is discarded.
	minElbowAngle float64

	inTop      bool
	topEnter   float64
	maxTopHold float64

	frames      int
	swingFrames int
}

func (a *attempt) reachedTop(minHold float64) bool {
	return a.maxTopHold >= minHold
}

func (a *attempt) qualified() bool {
	return a.minElbowAngle <= 120
}

// Aggregator turns a monotonically time-ordered stream of frames and their
// metrics into discrete repetition events. It is a per-session state
// machine: never share one across videos and never call Feed concurrently.
type Aggregator struct {
	cfg Config

	cur       *attempt
	lastPhase pose.Phase
	lastTime  float64
	haveLast  bool

	events         []Event
	occlusionSkips int
}

// NewAggregator creates an aggregator with the given thresholds.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg.withDefaults()}
}

// Feed consumes the next frame in time order. A nil metrics value marks a
// detection gap; gaps within tolerance do not disturb an in-progress
// attempt.
func (g *Aggregator) Feed(frame pose.Frame, m *pose.FrameMetrics) {
	t := frame.Timestamp
	if g.haveLast && t < g.lastTime {
		// Out-of-order input violates the contract; drop rather than
		// corrupt the state machine.
		return
	}

	// Abandon the in-progress attempt if the occlusion gap since the
	// last detected frame grew past tolerance. The attempt is tallied
	// as a skip and never merged into whatever comes next.
	if g.cur != nil && g.haveLast && t-g.lastTime > g.cfg.GapTolerance {
		g.cur = nil
		g.occlusionSkips++
		g.haveLast = false
		g.lastPhase = ""
	}

	if m == nil {
		// A gap is not a phase: it must not advance lastPhase or
		// lastTime, otherwise tolerated gaps would reset hold timing.
		return
	}

	phase := m.Phase

	if g.cur == nil {
		if phase == pose.PhaseAscending && (!g.haveLast ||
			g.lastPhase == pose.PhaseHanging || g.lastPhase == pose.PhaseTransition) {
			g.cur = &attempt{
				startTime:     t,
				peakTime:      t,
				peakOffset:    m.ChinToShoulderOffset,
				peakScore:     m.FormScore,
				minElbowAngle: m.AvgElbowAngle,
			}
			g.observe(t, m)
		}
		g.lastPhase = phase
		g.lastTime = t
		g.haveLast = true
		return
	}

	g.observe(t, m)

	if phase == pose.PhaseHanging {
		g.finish(t, m.AvgElbowAngle, false)
	}

	g.lastPhase = phase
	g.lastTime = t
	g.haveLast = true
}

// observe updates the in-progress attempt with one detected frame.
func (g *Aggregator) observe(t float64, m *pose.FrameMetrics) {
	a := g.cur
	a.frames++

	if m.AvgElbowAngle < a.minElbowAngle {
		a.minElbowAngle = m.AvgElbowAngle
	}
	if m.BodyAlignmentAngle > g.cfg.SwingAngle {
		a.swingFrames++
	}

	// Peak tracking only while actively pulling or over the bar.
	if m.Phase == pose.PhaseAscending || m.Phase == pose.PhaseTopPosition {
		if m.ChinToShoulderOffset < a.peakOffset {
			a.peakOffset = m.ChinToShoulderOffset
			a.peakTime = t
			a.peakScore = m.FormScore
		}
	}

	// Top-hold timing: dwell runs from entering top_position until the
	// first frame classified otherwise.
	if m.Phase == pose.PhaseTopPosition {
		if !a.inTop {
			a.inTop = true
			a.topEnter = t
		}
		a.maxTopHold = math.Max(a.maxTopHold, t-a.topEnter)
	} else if a.inTop {
		a.maxTopHold = math.Max(a.maxTopHold, t-a.topEnter)
		a.inTop = false
	}
}

// finish closes the in-progress attempt at time t. endOfStream relaxes the
// full-extension check: a stream that stops mid-rep can never show the
// re-extended bottom position.
func (g *Aggregator) finish(t, endElbowAngle float64, endOfStream bool) {
	a := g.cur
	g.cur = nil

	if !a.qualified() {
		// Never left the hanging/ascending boundary: not an attempt.
		return
	}

	ev := Event{
		StartTime: a.startTime,
		PeakTime:  a.peakTime,
		EndTime:   t,
		FormScore: a.peakScore,
	}

	held := a.reachedTop(g.cfg.MinTopHold)
	swinging := a.frames > 0 && a.swingFrames*2 > a.frames
	fullyExtended := !endOfStream && endElbowAngle >= g.cfg.FullExtensionAngle

	switch {
	case swinging:
		ev.Result = ResultFailed
		ev.FailureReason = FailureExcessiveSwinging
	case !held:
		ev.Result = ResultFailed
		ev.FailureReason = FailureChinNotOverBar
	case !fullyExtended:
		ev.Result = ResultFailed
		ev.FailureReason = FailureIncompleteExtension
	default:
		ev.Result = ResultCompleted
	}
	ev.Feedback = feedbackFor(ev.Result, ev.FailureReason, ev.FormScore)

	g.events = append(g.events, ev)
}

// Finish finalizes the stream. An in-progress attempt that qualified is
// closed with best-available data; anything shallower is dropped. Returns
// the complete, strictly time-ordered event list.
func (g *Aggregator) Finish() []Event {
	if g.cur != nil {
		if g.cur.inTop {
			g.cur.maxTopHold = math.Max(g.cur.maxTopHold, g.lastTime-g.cur.topEnter)
			g.cur.inTop = false
		}
		g.finish(g.lastTime, 0, true)
	}
	return g.Events()
}

// Events returns the events emitted so far, ordered by start time.
func (g *Aggregator) Events() []Event {
	out := make([]Event, len(g.events))
	copy(out, g.events)
	return out
}

// OcclusionSkips reports how many in-progress attempts were abandoned
// because detection dropped out for longer than the gap tolerance.
func (g *Aggregator) OcclusionSkips() int {
	return g.occlusionSkips
}

// Counts returns the running completed/failed tallies, cheap enough to
// call per frame for overlay rendering.
func (g *Aggregator) Counts() (completed, failed int) {
	for _, e := range g.events {
		if e.Result == ResultCompleted {
			completed++
		} else {
			failed++
		}
	}
	return
}

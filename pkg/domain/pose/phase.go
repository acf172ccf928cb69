package pose

// Phase classifies a single frame within the pull-up cycle. The set is
// closed; no other values are ever produced.
type Phase string

const (
	PhaseHanging     Phase = "hanging"
	PhaseAscending   Phase = "ascending"
	PhaseTopPosition Phase = "top_position"
	PhaseDescending  Phase = "descending"
	PhaseTransition  Phase = "transition"
)

// Per-frame classification thresholds.
const (
	hangingElbowAngle   = 160.0 // above this the athlete is in a dead hang
	flexedElbowAngle    = 120.0 // ascending/top boundary
	chinOverBarOffset   = -0.05 // chin this far above the shoulder line counts as over the bar
)

// ClassifyPhase maps one frame's elbow angle and chin offset to a phase.
// It is memoryless: previous frames are never consulted. Rules are
// evaluated in order and the first match wins.
func ClassifyPhase(avgElbowAngle, chinOffset float64) Phase {
	switch {
	case avgElbowAngle > hangingElbowAngle:
		return PhaseHanging
	case avgElbowAngle > flexedElbowAngle && chinOffset > 0:
		return PhaseAscending
	case avgElbowAngle <= flexedElbowAngle && chinOffset < chinOverBarOffset:
		return PhaseTopPosition
	case avgElbowAngle > flexedElbowAngle && chinOffset > 0:
		// Shadowed by the ascending rule above and never reached.
		// Retained as-is: telling ascending from descending needs a
		// velocity signal, which the aggregator supplies instead.
		// TODO: fold a chin-offset delta into this table so descending
		// is classifiable per frame.
		return PhaseDescending
	default:
		return PhaseTransition
	}
}

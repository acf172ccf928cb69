package pose

import "math"

// Form scoring penalties and bonuses. Applied additively from a base of
// 100, then clamped to [0,100].
const (
	alignmentMajorAngle   = 15.0
	alignmentMinorAngle   = 10.0
	alignmentMajorPenalty = 20
	alignmentMinorPenalty = 10

	asymmetryMajorDiff    = 20.0
	asymmetryMinorDiff    = 10.0
	asymmetryMajorPenalty = 15
	asymmetryMinorPenalty = 8

	extensionBonusAngle = 160.0
	extensionBonus      = 5
)

// FormScore rates a frame's form 0-100 from its angle fields alone. Pure;
// Phase and FormScore on the input are ignored.
func FormScore(m *FrameMetrics) int {
	score := 100

	switch {
	case m.BodyAlignmentAngle > alignmentMajorAngle:
		score -= alignmentMajorPenalty
	case m.BodyAlignmentAngle > alignmentMinorAngle:
		score -= alignmentMinorPenalty
	}

	diff := math.Abs(m.LeftElbowAngle - m.RightElbowAngle)
	switch {
	case diff > asymmetryMajorDiff:
		score -= asymmetryMajorPenalty
	case diff > asymmetryMinorDiff:
		score -= asymmetryMinorPenalty
	}

	if m.AvgElbowAngle > extensionBonusAngle {
		score += extensionBonus
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

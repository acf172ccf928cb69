package pose

import (
	"math"

	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/geometry"
)

// FrameMetrics is everything the repetition aggregator needs to know about
// a single frame. All fields are derived deterministically from one
// JointSet: the same joints always produce identical metrics.
type FrameMetrics struct {
	// ChinToShoulderOffset is nose.y minus the shoulder-line y. Image y
	// grows downward, so negative values mean the chin is above the
	// shoulders (pulled over the bar).
	ChinToShoulderOffset float64 `json:"chin_to_shoulder_offset"`

	LeftElbowAngle  float64 `json:"left_elbow_angle"`  // degrees [0,180]
	RightElbowAngle float64 `json:"right_elbow_angle"` // degrees [0,180]
	AvgElbowAngle   float64 `json:"avg_elbow_angle"`   // degrees [0,180]

	// BodyAlignmentAngle is the torso's deviation from vertical in
	// degrees [0,90]. 0 is a perfectly straight hang.
	BodyAlignmentAngle float64 `json:"body_alignment_angle"`

	// GripWidth is the normalized horizontal distance between the wrists.
	GripWidth float64 `json:"grip_width"`

	Phase     Phase `json:"phase"`
	FormScore int   `json:"form_score"` // [0,100]
}

// ExtractMetrics computes FrameMetrics from one frame's joints, including
// phase and form score. Returns nil only when js is nil; given a JointSet
// extraction never fails.
func ExtractMetrics(js *JointSet) *FrameMetrics {
	if js == nil {
		return nil
	}

	shoulderY := (js.LeftShoulder.Y + js.RightShoulder.Y) / 2

	m := &FrameMetrics{
		ChinToShoulderOffset: js.Nose.Y - shoulderY,
		LeftElbowAngle:       geometry.AngleBetween(js.LeftShoulder, js.LeftElbow, js.LeftWrist),
		RightElbowAngle:      geometry.AngleBetween(js.RightShoulder, js.RightElbow, js.RightWrist),
		GripWidth:            math.Abs(js.LeftWrist.X - js.RightWrist.X),
	}
	m.AvgElbowAngle = (m.LeftElbowAngle + m.RightElbowAngle) / 2

	shoulderMid := geometry.Midpoint(js.LeftShoulder, js.RightShoulder)
	hipMid := geometry.Midpoint(js.LeftHip, js.RightHip)
	m.BodyAlignmentAngle = geometry.VerticalDeviation(shoulderMid, hipMid)

	m.Phase = ClassifyPhase(m.AvgElbowAngle, m.ChinToShoulderOffset)
	m.FormScore = FormScore(m)

	return m
}

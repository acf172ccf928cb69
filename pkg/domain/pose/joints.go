// Package pose turns per-frame body landmarks into the derived metrics the
// repetition pipeline runs on: elbow angles, chin position relative to the
// shoulder line, body alignment, grip width, a movement phase and a form
// score. Landmark detection itself is external; this package only consumes
// its output.
package pose

import (
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/geometry"
)

// JointSet is the fixed set of upper-body landmarks extracted per frame,
// in normalized image coordinates. It is produced fresh for every frame
// where detection succeeds and is never mutated afterwards.
type JointSet struct {
	Nose          geometry.Point3D `json:"nose"`
	LeftShoulder  geometry.Point3D `json:"left_shoulder"`
	RightShoulder geometry.Point3D `json:"right_shoulder"`
	LeftElbow     geometry.Point3D `json:"left_elbow"`
	RightElbow    geometry.Point3D `json:"right_elbow"`
	LeftWrist     geometry.Point3D `json:"left_wrist"`
	RightWrist    geometry.Point3D `json:"right_wrist"`
	LeftHip       geometry.Point3D `json:"left_hip"`
	RightHip      geometry.Point3D `json:"right_hip"`
}

// Frame pairs one video frame's timing with its detected landmarks.
// Joints is nil when the estimator found no body in the frame.
type Frame struct {
	Index     int       `json:"index"`
	Timestamp float64   `json:"timestamp"` // seconds from video start
	Joints    *JointSet `json:"joints,omitempty"`
}

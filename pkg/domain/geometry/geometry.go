// Package geometry provides the angle computations used by the pull-up
// metrics pipeline. All angles are in degrees. The functions are total:
// degenerate input (coincident points, zero-length segments) yields a
// defined value rather than an error or NaN.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Point3D is a landmark coordinate in normalized image space. X and Y lie
// in [0,1] with Y growing downward; Z is the estimator's relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point3D) Point3D {
	return Point3D{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
		Z: (a.Z + b.Z) / 2,
	}
}

// AngleBetween returns the angle at vertex b formed by the rays b->a and
// b->c, in degrees [0,180]. Depth is projected out; only X and Y are used.
// If either ray has zero length the angle is defined as 0.
func AngleBetween(a, b, c Point3D) float64 {
	ba := []float64{a.X - b.X, a.Y - b.Y}
	bc := []float64{c.X - b.X, c.Y - b.Y}

	normBA := floats.Norm(ba, 2)
	normBC := floats.Norm(bc, 2)
	if normBA == 0 || normBC == 0 {
		return 0
	}

	// Clamp the cosine so float overshoot near +/-1 cannot take Acos out
	// of its domain.
	cos := floats.Dot(ba, bc) / (normBA * normBC)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	return math.Acos(cos) * 180 / math.Pi
}

// VerticalDeviation returns the angle between the segment top->bottom and
// the vertical image axis, in degrees [0,90]. Two coincident points are
// treated as perfectly vertical.
func VerticalDeviation(top, bottom Point3D) float64 {
	dx := math.Abs(top.X - bottom.X)
	dy := math.Abs(top.Y - bottom.Y)
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dx, dy) * 180 / math.Pi
}

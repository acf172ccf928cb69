// Package overlay draws the analysis on top of video frames: joint
// markers, a live stats panel, the repetition counter, and a flash when
// a repetition completes or fails.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/pose"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
)

// eventFlashWindow is how long, in seconds, the completed/failed banner
// stays on screen around an event's end time.
const eventFlashWindow = 1.0

var (
	colorJoint     = color.RGBA{G: 255, A: 255}
	colorPanelLine = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorCompleted = color.RGBA{G: 255, A: 255}
	colorFailed    = color.RGBA{R: 255, A: 255}
	colorNeutral   = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

var phaseColors = map[pose.Phase]color.RGBA{
	pose.PhaseHanging:     {R: 200, G: 200, B: 200, A: 255},
	pose.PhaseAscending:   {R: 255, G: 165, A: 255},
	pose.PhaseTopPosition: {G: 255, A: 255},
	pose.PhaseDescending:  {R: 135, G: 206, B: 235, A: 255},
	pose.PhaseTransition:  {R: 255, G: 255, B: 0, A: 255},
}

// Renderer draws onto frames in place.
type Renderer struct {
	Events []rep.Event
}

// Draw annotates one frame. Joints and metrics may be nil when the
// frame had no detection; the counter panel is still drawn.
func (r *Renderer) Draw(frame *gocv.Mat, timestamp float64, joints *pose.JointSet, m *pose.FrameMetrics) {
	w := frame.Cols()
	h := frame.Rows()

	if joints != nil {
		r.drawJoints(frame, joints, w, h)
	}
	r.drawStatsPanel(frame, m)
	r.drawRepCounter(frame, timestamp, w)
	r.drawEventFlash(frame, timestamp, w, h)
}

func (r *Renderer) drawJoints(frame *gocv.Mat, js *pose.JointSet, w, h int) {
	for _, p := range [...]struct{ X, Y float64 }{
		{js.Nose.X, js.Nose.Y},
		{js.LeftShoulder.X, js.LeftShoulder.Y},
		{js.RightShoulder.X, js.RightShoulder.Y},
		{js.LeftElbow.X, js.LeftElbow.Y},
		{js.RightElbow.X, js.RightElbow.Y},
		{js.LeftWrist.X, js.LeftWrist.Y},
		{js.RightWrist.X, js.RightWrist.Y},
		{js.LeftHip.X, js.LeftHip.Y},
		{js.RightHip.X, js.RightHip.Y},
	} {
		gocv.Circle(frame, image.Pt(int(p.X*float64(w)), int(p.Y*float64(h))), 5, colorJoint, -1)
	}
}

func (r *Renderer) drawStatsPanel(frame *gocv.Mat, m *pose.FrameMetrics) {
	// Semi-opaque backdrop keeps the text readable on bright footage.
	gocv.Rectangle(frame, image.Rect(10, 10, 280, 120), color.RGBA{A: 255}, -1)
	gocv.Rectangle(frame, image.Rect(10, 10, 280, 120), colorPanelLine, 2)

	if m == nil {
		gocv.PutText(frame, "NO DETECTION", image.Pt(20, 60),
			gocv.FontHersheySimplex, 0.8, colorFailed, 2)
		return
	}

	phaseColor, ok := phaseColors[m.Phase]
	if !ok {
		phaseColor = colorNeutral
	}

	gocv.PutText(frame, fmt.Sprintf("Phase: %s", m.Phase), image.Pt(20, 40),
		gocv.FontHersheySimplex, 0.7, phaseColor, 2)
	gocv.PutText(frame, fmt.Sprintf("Elbow: %.0f deg", m.AvgElbowAngle), image.Pt(20, 70),
		gocv.FontHersheySimplex, 0.7, colorPanelLine, 2)
	gocv.PutText(frame, fmt.Sprintf("Form: %d", m.FormScore), image.Pt(20, 100),
		gocv.FontHersheySimplex, 0.7, scoreColor(m.FormScore), 2)
}

func (r *Renderer) drawRepCounter(frame *gocv.Mat, timestamp float64, w int) {
	completed, failed := 0, 0
	for _, e := range r.Events {
		if e.EndTime > timestamp {
			continue
		}
		if e.Result == rep.ResultCompleted {
			completed++
		} else {
			failed++
		}
	}

	text := fmt.Sprintf("Reps: %d  Failed: %d", completed, failed)
	gocv.Rectangle(frame, image.Rect(w-300, 10, w-10, 60), color.RGBA{A: 255}, -1)
	gocv.Rectangle(frame, image.Rect(w-300, 10, w-10, 60), colorPanelLine, 2)
	gocv.PutText(frame, text, image.Pt(w-290, 45),
		gocv.FontHersheySimplex, 0.8, colorPanelLine, 2)
}

func (r *Renderer) drawEventFlash(frame *gocv.Mat, timestamp float64, w, h int) {
	for _, e := range r.Events {
		if timestamp < e.EndTime || timestamp > e.EndTime+eventFlashWindow {
			continue
		}

		text := "REP COMPLETED"
		c := colorCompleted
		if e.Result == rep.ResultFailed {
			text = "REP FAILED: " + string(e.FailureReason)
			c = colorFailed
		}
		gocv.PutText(frame, text, image.Pt(w/2-200, h-40),
			gocv.FontHersheySimplex, 1.0, c, 3)
		return
	}
}

func scoreColor(score int) color.RGBA {
	switch {
	case score >= 80:
		return colorCompleted
	case score >= 60:
		return colorNeutral
	default:
		return colorFailed
	}
}

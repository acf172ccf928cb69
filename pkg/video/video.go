// Package video wraps OpenCV capture and encoding behind small
// interfaces so the rest of the pipeline, and its tests, never touch
// gocv directly.
package video

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
)

// Info describes a video file's basic properties.
type Info struct {
	FPS        float64
	Width      int
	Height     int
	FrameCount int
	Duration   float64
}

// Extractor reads frames from video files on disk.
type Extractor struct{}

// Probe opens the file and reports its properties.
func (Extractor) Probe(path string) (Info, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return Info{}, fmt.Errorf("open video %s: %w", path, err)
	}
	defer vc.Close()

	info := Info{
		FPS:        vc.Get(gocv.VideoCaptureFPS),
		Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FrameCount: int(vc.Get(gocv.VideoCaptureFrameCount)),
	}
	if info.FPS > 0 {
		info.Duration = float64(info.FrameCount) / info.FPS
	}
	return info, nil
}

// KeyFrames samples the video at the given interval in seconds and
// returns each sampled frame JPEG-encoded.
func (e Extractor) KeyFrames(ctx context.Context, path string, interval float64) ([]shared.KeyFrame, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	defer vc.Close()

	fps := vc.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		return nil, fmt.Errorf("video %s reports no frame rate", path)
	}
	step := int(interval * fps)
	if step < 1 {
		step = 1
	}

	mat := gocv.NewMat()
	defer mat.Close()

	var frames []shared.KeyFrame
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if ok := vc.Read(&mat); !ok {
			break
		}
		if mat.Empty() || idx%step != 0 {
			continue
		}

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
		if err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", idx, err)
		}
		jpeg := make([]byte, len(buf.GetBytes()))
		copy(jpeg, buf.GetBytes())
		buf.Close()

		frames = append(frames, shared.KeyFrame{
			Index:     idx,
			Timestamp: float64(idx) / fps,
			JPEG:      jpeg,
		})
	}
	return frames, nil
}

// EachFrame streams every frame through fn at full rate, for overlay
// rendering. The Mat passed to fn is reused between calls.
func (e Extractor) EachFrame(ctx context.Context, path string, fn func(idx int, timestamp float64, frame *gocv.Mat) error) error {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", path, err)
	}
	defer vc.Close()

	fps := vc.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		return fmt.Errorf("video %s reports no frame rate", path)
	}

	mat := gocv.NewMat()
	defer mat.Close()

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok := vc.Read(&mat); !ok {
			return nil
		}
		if mat.Empty() {
			continue
		}
		if err := fn(idx, float64(idx)/fps, &mat); err != nil {
			return err
		}
	}
}

package overlay

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
	"github.com/filiksyos/AI-pull-up-counter/pkg/video"
)

// MP4Renderer reads the source video at full rate, draws the analysis
// on every frame, and writes the annotated mp4.
type MP4Renderer struct {
	Extractor video.Extractor
}

func (r *MP4Renderer) Render(ctx context.Context, inputPath, outputPath string, samples []shared.Sample, events []rep.Event, onProgress func(pct float64)) error {
	info, err := r.Extractor.Probe(inputPath)
	if err != nil {
		return err
	}

	w, err := video.NewWriter(outputPath, info.FPS, info.Width, info.Height)
	if err != nil {
		return err
	}
	defer w.Close()

	draw := &Renderer{Events: events}
	total := info.FrameCount

	return r.Extractor.EachFrame(ctx, inputPath, func(idx int, timestamp float64, frame *gocv.Mat) error {
		s := sampleAt(samples, timestamp)
		draw.Draw(frame, timestamp, s.Joints, s.Metrics)

		if err := w.Write(frame); err != nil {
			return fmt.Errorf("write frame %d: %w", idx, err)
		}
		if onProgress != nil && total > 0 && idx%30 == 0 {
			onProgress(float64(idx) / float64(total) * 100)
		}
		return nil
	})
}

// sampleAt returns the latest sample at or before timestamp. Key frames
// are sparse relative to the full frame rate, so each sample's analysis
// holds until the next one.
func sampleAt(samples []shared.Sample, timestamp float64) shared.Sample {
	var best shared.Sample
	for _, s := range samples {
		if s.Timestamp > timestamp {
			break
		}
		best = s
	}
	return best
}

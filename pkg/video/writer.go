package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Writer produces the annotated mp4 output at the source video's frame
// rate and resolution.
type Writer struct {
	vw *gocv.VideoWriter
}

func NewWriter(path string, fps float64, width, height int) (*Writer, error) {
	vw, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("create video writer %s: %w", path, err)
	}
	return &Writer{vw: vw}, nil
}

func (w *Writer) Write(frame *gocv.Mat) error {
	return w.vw.Write(*frame)
}

func (w *Writer) Close() error {
	return w.vw.Close()
}

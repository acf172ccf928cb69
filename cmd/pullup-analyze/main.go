// pullup-analyze processes a single video from the command line and
// prints the resulting summary, without the web server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
	"github.com/filiksyos/AI-pull-up-counter/pkg/analyzer"
	"github.com/filiksyos/AI-pull-up-counter/pkg/bootstrap"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/progress"
	"github.com/filiksyos/AI-pull-up-counter/pkg/overlay"
	"github.com/filiksyos/AI-pull-up-counter/pkg/processor"
	"github.com/filiksyos/AI-pull-up-counter/pkg/video"
)

func main() {
	inputFile := flag.String("input", "", "Path to input video file")
	outputFile := flag.String("output", "", "Output video name (default analyzed_<input>)")
	noVideo := flag.Bool("no-video", false, "Skip annotated video generation")
	noAI := flag.Bool("no-ai", false, "Skip the Gemini cross-check")
	flag.Parse()

	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(shared.ServiceName)
	ctx := context.Background()

	svc, err := bootstrap.NewService(ctx, logger)
	if err != nil {
		log.Fatalf("Service init failed: %v", err)
	}
	cfg := svc.Config

	outputName := *outputFile
	if outputName == "" {
		base := strings.TrimSuffix(filepath.Base(*inputFile), filepath.Ext(*inputFile))
		outputName = "analyzed_" + base + ".mp4"
	}

	proc := &processor.Processor{
		Frames:   video.Extractor{},
		Pose:     svc.Pose,
		Store:    svc.Store,
		Progress: progress.NewManager(&progress.LogSink{Logger: logger}, logger),
		Config:   cfg,
		Logger:   logger,
	}
	if !*noVideo {
		proc.Renderer = &overlay.MP4Renderer{}
	}
	if !*noAI {
		proc.AI = analyzer.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.FramesPerRequest, logger)
	}

	out, err := proc.Process(ctx, *inputFile, outputName)
	if err != nil {
		log.Fatalf("Processing failed: %v", err)
	}

	summary, err := json.MarshalIndent(out.Results.Summary, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode summary: %v", err)
	}
	fmt.Println(string(summary))
	fmt.Printf("Results written to %s\n", filepath.Join(cfg.OutputDir, out.ResultsFile))
	if out.OutputVideo != "" {
		fmt.Printf("Annotated video: %s\n", filepath.Join(cfg.OutputDir, out.OutputVideo))
	}
}

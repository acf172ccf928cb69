package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filiksyos/AI-pull-up-counter/pkg/bootstrap"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/rep"
	"github.com/filiksyos/AI-pull-up-counter/pkg/domain/session"
	"github.com/filiksyos/AI-pull-up-counter/pkg/infrastructure/progress"
	"github.com/filiksyos/AI-pull-up-counter/pkg/processor"
)

func newTestServer(t *testing.T, process ProcessFunc) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &bootstrap.Config{
		UploadDir:      t.TempDir(),
		OutputDir:      t.TempDir(),
		MaxUploadBytes: 10 * 1024 * 1024,
		Detection:      rep.DefaultConfig(),
	}
	hub := progress.NewHub(logger)
	mgr := progress.NewManager(hub, logger)
	return NewServer(cfg, logger, hub, mgr, process)
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_StartsProcessing(t *testing.T) {
	done := make(chan string, 1)
	srv := newTestServer(t, func(ctx context.Context, inputPath, outputName string) (*processor.Output, error) {
		out := &processor.Output{
			Results: session.New(rep.DefaultConfig()).Finalize(),
		}
		done <- out.Results.SessionID
		return out, nil
	})
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "workout.mp4", []byte("fake video")))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "processing" {
		t.Errorf("status field = %q", resp["status"])
	}
	if resp["output_file"] != "analyzed_workout.mp4" {
		t.Errorf("output_file = %q", resp["output_file"])
	}

	var sessionID string
	select {
	case sessionID = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline never ran")
	}

	// The result becomes visible after the goroutine stores it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/"+sessionID, nil))
		if rec.Code == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("results never stored, last status %d", rec.Code)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("text")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_BusyReturns409(t *testing.T) {
	block := make(chan struct{})
	srv := newTestServer(t, func(ctx context.Context, inputPath, outputName string) (*processor.Output, error) {
		<-block
		return &processor.Output{Results: session.New(rep.DefaultConfig()).Finalize()}, nil
	})
	defer close(block)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "first.mp4", []byte("video")))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first upload status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "second.mp4", []byte("video")))
	if rec.Code != http.StatusConflict {
		t.Errorf("second upload status = %d, want 409", rec.Code)
	}
}

func TestDownload(t *testing.T) {
	srv := newTestServer(t, nil)
	router := srv.Router()

	if err := os.WriteFile(filepath.Join(srv.cfg.OutputDir, "analyzed.mp4"), []byte("mp4data"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"existing mp4", "/download/analyzed.mp4", http.StatusOK},
		{"missing file", "/download/nope.mp4", http.StatusNotFound},
		{"non-mp4", "/download/results.json", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
					t.Errorf("content type = %q", got)
				}
			}
		})
	}

	// Escaped path separators must never reach the filesystem.
	t.Run("traversal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/..%2Fanalyzed.mp4", nil))
		if rec.Code == http.StatusOK {
			t.Error("traversal request succeeded")
		}
	})
}

func TestProgressEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var u map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	if u["type"] != "progress" {
		t.Errorf("type = %v", u["type"])
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestResults_UnknownSession(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/does-not-exist", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

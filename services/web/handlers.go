package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var allowedVideoExts = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleUpload accepts one multipart video upload and starts background
// processing. Responds 409 while another video is in flight.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or oversized file upload")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedVideoExts[ext] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %q", ext))
		return
	}

	if !s.tryAcquire() {
		writeError(w, http.StatusConflict, "another video is being processed")
		return
	}

	uploadID := uuid.New().String()
	inputName := uploadID + ext
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.release()
		writeError(w, http.StatusInternalServerError, "upload dir unavailable")
		return
	}
	inputPath := filepath.Join(s.cfg.UploadDir, inputName)

	dst, err := os.Create(inputPath)
	if err != nil {
		s.release()
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(inputPath)
		s.release()
		writeError(w, http.StatusBadRequest, "upload interrupted or too large")
		return
	}
	dst.Close()

	base := strings.TrimSuffix(filepath.Base(header.Filename), ext)
	outputName := "analyzed_" + sanitizeName(base) + ".mp4"

	s.logger.Info("Upload accepted",
		"upload_id", uploadID, "filename", header.Filename, "size", header.Size)

	go s.runPipeline(inputPath, outputName)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":      "processing",
		"upload_id":   uploadID,
		"output_file": outputName,
	})
}

// sanitizeName strips path separators and odd characters from a
// client-supplied base name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "video"
	}
	return b.String()
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.progress.Snapshot())
}

// handleDownload serves the annotated mp4. Only mp4 files straight out
// of the output directory are downloadable.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	if strings.ToLower(filepath.Ext(filename)) != ".mp4" {
		writeError(w, http.StatusBadRequest, "only mp4 downloads are supported")
		return
	}

	path := filepath.Join(s.cfg.OutputDir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, ok := s.lookupResult(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	busy := s.busy
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"processing": busy,
	})
}

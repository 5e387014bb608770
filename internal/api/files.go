package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"reelsmith/internal/workflow"
)

// tempFile serves per-job intermediate media (speech audio, normalized voice
// tracks) so an external renderer can fetch them over HTTP.
func (h *handlers) tempFile(w http.ResponseWriter, r *http.Request) {
	job := chi.URLParam(r, "job")
	name := chi.URLParam(r, "file")
	if h.opts.WorkDir == "" || !workflow.ValidJobID(job) || !workflow.ValidJobID(name) || filepath.Base(name) != name {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "file not found", Kind: "not_found"})
		return
	}

	file, err := os.Open(filepath.Join(h.opts.WorkDir, job, name))
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "file not found", Kind: "not_found"})
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "file not found", Kind: "not_found"})
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), file)
}

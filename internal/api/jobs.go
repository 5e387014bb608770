package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"reelsmith/internal/workflow"
)

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	var req workflow.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: "validation"})
		return
	}
	id, err := h.opts.Jobs.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+id+"/status")
	writeJSON(w, http.StatusAccepted, SubmitResponse{ID: id})
}

func (h *handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.opts.Jobs.Jobs(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JobListResponse{Jobs: FromJobStatuses(jobs)})
}

func (h *handlers) jobStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.opts.Jobs.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FromJobStatus(status))
}

func (h *handlers) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, _, err := h.opts.Jobs.Artifact(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "artifact not found", Kind: "not_found"})
			return
		}
		h.writeError(w, r, err)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".mp4"))
	http.ServeContent(w, r, id+".mp4", info.ModTime(), file)
}

func (h *handlers) removeArtifact(w http.ResponseWriter, r *http.Request) {
	removed, err := h.opts.Jobs.RemoveArtifact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "artifact not found", Kind: "not_found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

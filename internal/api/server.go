package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/services"
	"reelsmith/internal/workflow"
)

// JobService is the part of the workflow manager the API drives.
type JobService interface {
	Submit(ctx context.Context, req workflow.SubmitRequest) (string, error)
	Status(ctx context.Context, id string) (workflow.JobStatus, error)
	Jobs(ctx context.Context) ([]workflow.JobStatus, error)
	Artifact(ctx context.Context, id string) (string, int64, error)
	RemoveArtifact(ctx context.Context, id string) (bool, error)
}

// Options wires the router to its backing services.
type Options struct {
	Jobs     JobService
	Progress *progress.Broadcaster
	// Status reports daemon diagnostics; /api/status answers 503 without it.
	Status func(ctx context.Context) DaemonStatus
	Logs   *logging.StreamHub
	// WorkDir is the root of per-job temp media served under /api/tmp.
	WorkDir        string
	Token          string
	AllowedOrigins []string
	MaxBodyBytes   int64
	Logger         *slog.Logger
}

type handlers struct {
	opts   Options
	logger *slog.Logger
}

// NewRouter builds the HTTP handler for every API route.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "api-server")
	h := &handlers{opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(corsOptions(opts.AllowedOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/tmp/{job}/{file}", h.tempFile)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(opts.Token))
			r.Use(maxBodySize(opts.MaxBodyBytes))

			r.Post("/jobs", h.submit)
			r.Get("/jobs", h.listJobs)
			r.Get("/jobs/{id}/status", h.jobStatus)
			r.Get("/jobs/{id}/progress", h.jobProgress)
			r.Get("/jobs/{id}/artifact", h.downloadArtifact)
			r.Delete("/jobs/{id}/artifact", h.removeArtifact)

			r.Get("/status", h.daemonStatus)
			r.Get("/logs", h.logs)
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// statusForError maps error kinds onto HTTP status codes.
func statusForError(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch services.Kind(err) {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	details := services.Details(err)
	message := details.Message
	if message == "" {
		message = err.Error()
	}
	if status >= 500 {
		logging.WithContext(r.Context(), h.logger).Error("api handler failed",
			logging.String("path", r.URL.Path),
			logging.ErrorKind(err),
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_handler_failed"),
			logging.String(logging.FieldErrorHint, "check daemon logs and queue database access"),
		)
	}
	resp := ErrorResponse{Error: message}
	if details.Kind != services.KindUnknown {
		resp.Kind = string(details.Kind)
	}
	writeJSON(w, status, resp)
}

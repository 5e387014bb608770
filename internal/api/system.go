package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"reelsmith/internal/logging"
)

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *handlers) daemonStatus(w http.ResponseWriter, r *http.Request) {
	if h.opts.Status == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "daemon status unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, h.opts.Status(r.Context()))
}

// logs serves a page of the in-memory log stream. With follow set the request
// blocks until new events arrive; with tail set (and no cursor) it returns the
// most recent events.
func (h *handlers) logs(w http.ResponseWriter, r *http.Request) {
	hub := h.opts.Logs
	if hub == nil {
		writeJSON(w, http.StatusOK, LogStreamResponse{Events: []logging.LogEvent{}})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := parseFlag(query.Get("follow"))
	tail := parseFlag(query.Get("tail"))
	filter := logging.LogFilter{
		JobID:     strings.TrimSpace(query.Get("job")),
		Component: strings.TrimSpace(query.Get("component")),
		Level:     strings.TrimSpace(query.Get("level")),
	}

	var (
		events []logging.LogEvent
		next   uint64
	)
	if tail && since == 0 && !follow {
		events, next = hub.Tail(limit)
	} else {
		var err error
		events, next, err = hub.Fetch(r.Context(), since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			h.writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, LogStreamResponse{Events: filter.Apply(events), Next: next})
}

func parseFlag(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}

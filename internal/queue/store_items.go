package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Enqueue appends a job to the tail of the queue. An empty id is replaced by
// a fresh UUID.
func (s *Store) Enqueue(ctx context.Context, id, requestJSON string, sceneCount int) (*Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(requestJSON) == "" {
		return nil, errors.New("enqueue: request payload is empty")
	}
	timestamp := formatTime(time.Now())

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO jobs (
            id, status, request_json, scene_count, created_at, updated_at,
            progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		StatusQueued,
		requestJSON,
		sceneCount,
		timestamp,
		timestamp,
		"queued",
		0.0,
		nil,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A missing job yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// NextQueued returns the oldest queued job, or nil when the queue is empty.
func (s *Store) NextQueued(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY seq LIMIT 1`,
		StatusQueued,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next queued job: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided) in queue order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY seq`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return scanJobs(rows)
}

// Position reports where a job stands: 0 while processing, n >= 1 for the
// n-th queued job, and -1 when the job is not in the store.
func (s *Store) Position(ctx context.Context, id string) (int, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return -1, err
	}
	if job == nil {
		return -1, nil
	}
	if job.Status == StatusProcessing {
		return 0, nil
	}
	var ahead int
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM jobs WHERE status = ? AND seq < ?`,
		StatusQueued,
		job.Seq,
	)
	if err := row.Scan(&ahead); err != nil {
		return -1, fmt.Errorf("queue position: %w", err)
	}
	return ahead + 1, nil
}

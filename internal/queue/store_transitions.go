package queue

import (
	"context"
	"fmt"
	"time"
)

// MarkProcessing hands a queued job to the worker. Only queued jobs may move
// to processing; anything else returns ErrInvalidTransition or ErrJobNotFound.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, started_at = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusProcessing,
		now,
		now,
		now,
		id,
		StatusQueued,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if affected == 0 {
		return s.missingOrInvalid(ctx, id, StatusProcessing)
	}
	return nil
}

// UpdateProgress stores the latest progress snapshot for a job so status
// queries can resume from it.
func (s *Store) UpdateProgress(ctx context.Context, id, stage string, percent float64, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(stage),
		percent,
		nullableString(message),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update progress %s: %w", id, ErrJobNotFound)
	}
	return nil
}

// Remove deletes a job. It reports whether a row was removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove job: %w", err)
	}
	return affected > 0, nil
}

// Clear removes every job and returns the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) missingOrInvalid(ctx context.Context, id string, target Status) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%s: %w", id, ErrJobNotFound)
	}
	return fmt.Errorf("%s: %s -> %s: %w", id, job.Status, target, ErrInvalidTransition)
}

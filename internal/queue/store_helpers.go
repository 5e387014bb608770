package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "seq, id, status, request_json, scene_count, progress_stage, progress_percent, progress_message, created_at, updated_at, started_at, last_heartbeat"

var expectedColumns = []string{
	"seq",
	"id",
	"status",
	"request_json",
	"scene_count",
	"progress_stage",
	"progress_percent",
	"progress_message",
	"created_at",
	"updated_at",
	"started_at",
	"last_heartbeat",
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		seq             int64
		id              string
		statusStr       string
		requestJSON     string
		sceneCount      int
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		startedRaw      sql.NullString
		heartbeatRaw    sql.NullString
	)

	if err := scanner.Scan(
		&seq,
		&id,
		&statusStr,
		&requestJSON,
		&sceneCount,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		Seq:             seq,
		ID:              id,
		Status:          Status(statusStr),
		RequestJSON:     requestJSON,
		SceneCount:      sceneCount,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	job.StartedAt = parseOptionalTime(startedRaw)
	job.LastHeartbeat = parseOptionalTime(heartbeatRaw)
	return job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func parseOptionalTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// storedTimeLayout is fixed width so stored timestamps compare correctly as
// strings in SQL.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(storedTimeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

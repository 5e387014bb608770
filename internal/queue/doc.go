// Package queue persists render jobs in SQLite while they wait for or occupy
// the single render worker.
//
// The Store manages the database connection, schema initialization, FIFO
// ordering by insertion sequence, progress snapshots, heartbeat tracking and
// health diagnostics. Rows exist only while a job is queued or processing:
// finished and failed jobs are removed, and their outcome is derived from the
// artifact directory.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// No operation moves a job from processing back to queued.
package queue

// Package logging assembles the structured slog loggers used by the daemon,
// the render workflow, and the CLI.
//
// It owns the console ("pretty") and JSON handlers, fans records out to the
// terminal, a per-run log file, and the in-memory StreamHub that backs the
// /api/logs endpoint. Context helpers stamp job IDs, stages, scene indexes,
// and correlation IDs onto log lines so a single render can be followed
// end to end.
//
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging

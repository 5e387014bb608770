// Package logs reads the daemon's in-memory log stream over the HTTP API.
//
// StreamClient pages through /api/logs with a sequence cursor, and Follow
// keeps long-polling until the caller cancels. Format renders events as the
// single-line form printed by `reelsmith logs`.
package logs

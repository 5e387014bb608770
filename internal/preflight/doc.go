// Package preflight provides readiness checks for the directories, disk
// space, binaries and provider backends Reelsmith depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure.
//   - The CLI "reelsmith doctor" command renders the same results as a table.
package preflight

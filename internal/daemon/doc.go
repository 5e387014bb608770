// Package daemon coordinates the long-running Reelsmith process.
//
// It wires configuration, queue storage, the workflow manager and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon reports runtime status (including external binary
// availability) and owns queue maintenance helpers.
//
// Keep orchestration logic here: pipeline steps live in the workflow and
// provider packages while the daemon focuses on startup, shutdown and high
// level coordination.
package daemon

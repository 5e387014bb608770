// Package main hosts the Reelsmith CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, submits and
// watches render jobs over the daemon's HTTP API, and offers offline tools
// (plan, frame, doctor) that compose timelines and check dependencies without
// a running daemon. Configuration resolution and API client construction are
// centralized in commandContext so subcommands can focus on output.
package main

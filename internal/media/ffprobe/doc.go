// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and Decode parses its output; Result helpers expose
// the durations used to frame scenes against their narration.
package ffprobe

// Package deps reports which external binaries the configured providers need
// and whether they can be found.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"reelsmith/internal/config"
)

// Requirement defines an external dependency Reelsmith relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the binaries needed by the providers cfg selects.
// FFmpeg and ffprobe are always required for audio normalisation.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpeg.FFmpegBinary,
			Description: "Required for narration loudness normalisation",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFmpeg.FFprobeBinary,
			Description: "Measures narration duration",
			Optional:    true,
		},
	}
	if cfg.Providers.Speech == "edge_tts" {
		reqs = append(reqs, Requirement{
			Name:        "edge-tts",
			Command:     cfg.EdgeTTS.Binary,
			Description: "Required for speech synthesis",
		})
	}
	if cfg.Providers.Transcriber == "whisper" {
		reqs = append(reqs, Requirement{
			Name:        "whisper.cpp",
			Command:     cfg.Whisper.Binary,
			Description: "Required for word-level transcription",
		})
	}
	if cfg.Providers.Renderer == "command" {
		reqs = append(reqs, Requirement{
			Name:        "Renderer",
			Command:     cfg.Renderer.Binary,
			Description: "Renders composed timelines to video",
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the names of required dependencies that are unavailable.
func Missing(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}

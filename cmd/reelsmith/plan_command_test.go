package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"reelsmith/internal/testsupport"
	"reelsmith/internal/timeline"
)

const sampleScenes = `
fps: 30
config:
  orientation: portrait
scenes:
  - videoRef: https://videos.example.com/canyon.mp4
    audio:
      url: http://127.0.0.1:7491/api/tmp/job/scene-0-voice.mp3
      durationSeconds: 2
    captions:
      - {text: Rivers, startMs: 0, endMs: 400}
      - {text: carve, startMs: 400, endMs: 800}
      - {text: canyons, startMs: 800, endMs: 1500}
  - videoRef: https://videos.example.com/desert.mp4
    audio:
      url: http://127.0.0.1:7491/api/tmp/job/scene-1-voice.mp3
      durationSeconds: 1.5
    captions:
      - {text: Wind, startMs: 0, endMs: 600}
`

func offlineConfig(t *testing.T) string {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(testsupport.BaseDir(cfg), "reelsmith.toml")
	writeTestConfig(t, path, cfg)
	return path
}

func TestPlanPrintsSlots(t *testing.T) {
	configPath := offlineConfig(t)
	docPath := writeFile(t, filepath.Join(t.TempDir(), "scenes.yaml"), sampleScenes)

	stdout, _, err := runCLI(t, []string{"plan", docPath}, configPath)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	requireContains(t, stdout, "@ 30 fps")
	requireContains(t, stdout, "canyon.mp4")
	requireContains(t, stdout, "Wind")

	stdout, _, err = runCLI(t, []string{"--json", "plan", docPath}, configPath)
	if err != nil {
		t.Fatalf("plan --json failed: %v", err)
	}
	var plan timeline.Plan
	if err := json.Unmarshal([]byte(stdout), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.FPS != 30 || len(plan.Slots) != 2 {
		t.Fatalf("unexpected plan: fps=%d slots=%d", plan.FPS, len(plan.Slots))
	}
	first, second := plan.Slots[0], plan.Slots[1]
	if first.StartFrame != 0 || first.DurationFrames != 60 {
		t.Fatalf("unexpected first slot: start=%d frames=%d", first.StartFrame, first.DurationFrames)
	}
	if second.StartFrame != first.EndFrame() {
		t.Fatalf("slots must be contiguous: first ends %d, second starts %d", first.EndFrame(), second.StartFrame)
	}
	if plan.DurationFrames != second.EndFrame() {
		t.Fatalf("duration %d does not match last slot end %d", plan.DurationFrames, second.EndFrame())
	}
	if len(first.Pages) == 0 {
		t.Fatal("expected caption pages for first scene")
	}
}

func TestPlanReadsStdin(t *testing.T) {
	configPath := offlineConfig(t)

	stdout, _, err := runCLIWithInput(t, []string{"--json", "plan", "-"}, configPath, sampleScenes)
	if err != nil {
		t.Fatalf("plan from stdin failed: %v", err)
	}
	var plan timeline.Plan
	if err := json.Unmarshal([]byte(stdout), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if len(plan.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(plan.Slots))
	}
}

func TestPlanRejectsEmptyDocument(t *testing.T) {
	configPath := offlineConfig(t)
	docPath := writeFile(t, filepath.Join(t.TempDir(), "empty.yaml"), "fps: 30\nscenes: []\n")

	if _, _, err := runCLI(t, []string{"plan", docPath}, configPath); err == nil {
		t.Fatal("expected error for document without scenes")
	}
}

func TestFrameRendersDrawInstructions(t *testing.T) {
	configPath := offlineConfig(t)
	docPath := writeFile(t, filepath.Join(t.TempDir(), "scenes.yaml"), sampleScenes)

	stdout, _, err := runCLI(t, []string{"frame", docPath, "--frame", "6"}, configPath)
	if err != nil {
		t.Fatalf("frame failed: %v", err)
	}
	var frame timeline.Frame
	if err := json.Unmarshal([]byte(stdout), &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Index != 6 || frame.Scene == nil {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	if frame.Scene.Index != 0 || frame.Scene.VideoRef != "https://videos.example.com/canyon.mp4" {
		t.Fatalf("unexpected scene layer: %+v", frame.Scene)
	}
	if frame.Width != 1080 || frame.Height != 1920 {
		t.Fatalf("expected portrait dimensions, got %dx%d", frame.Width, frame.Height)
	}

	if _, _, err := runCLI(t, []string{"frame", docPath, "--frame", "100000"}, configPath); err == nil {
		t.Fatal("expected error for frame outside the timeline")
	}
}

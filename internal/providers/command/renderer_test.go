package command_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/providers"
	"reelsmith/internal/providers/command"
	"reelsmith/internal/timeline"
)

type fakeExecutor struct {
	args   []string
	lines  []string
	output []byte
	err    error
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string, onLine func(string)) error {
	f.args = append([]string(nil), args...)
	for _, line := range f.lines {
		onLine(line)
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(args[len(args)-1], f.output, 0o644)
}

func TestParseProgress(t *testing.T) {
	cases := map[string]float64{
		"Rendered 30/120, time remaining: 4s": 0.25,
		"Rendered 120/120":                    1,
	}
	for line, want := range cases {
		got, ok := command.ParseProgress(line)
		if !ok || got != want {
			t.Fatalf("ParseProgress(%q) = %v %v, want %v", line, got, ok, want)
		}
	}
	if _, ok := command.ParseProgress("Bundling 50%"); ok {
		t.Fatal("unexpected match for unrelated line")
	}
	if _, ok := command.ParseProgress("Rendered 1/0"); ok {
		t.Fatal("zero total should not parse")
	}
}

func TestExpandArgs(t *testing.T) {
	args := command.ExpandArgs([]string{"render", "--props={props}", "{output}"}, "/w/props.json", "/o/a.mp4")
	if strings.Join(args, " ") != "render --props=/w/props.json /o/a.mp4" {
		t.Fatalf("unexpected args %v", args)
	}
	args = command.ExpandArgs([]string{"render"}, "/w/props.json", "/o/a.mp4")
	if args[len(args)-1] != "/o/a.mp4" {
		t.Fatalf("expected output appended, got %v", args)
	}
}

func TestRenderWritesPropsAndReportsProgress(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{
		lines:  []string{"Bundling", "Rendered 1/4", "Rendered 2/4"},
		output: []byte("mp4"),
	}
	renderer := command.New(command.Config{Binary: "npx", Args: []string{"remotion", "render", "--props={props}", "{output}"}},
		command.WithExecutor(exec))

	plan := &timeline.Plan{FPS: 30, Width: 1080, Height: 1920, DurationFrames: 90}
	var fractions []float64
	output := filepath.Join(dir, "out", "job.mp4")
	path, err := renderer.Render(context.Background(), providers.RenderRequest{
		Plan:       plan,
		OutputPath: output,
		WorkDir:    filepath.Join(dir, "work"),
	}, func(f float64) { fractions = append(fractions, f) })
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if path != output {
		t.Fatalf("unexpected output path %q", path)
	}
	if len(fractions) != 3 || fractions[0] != 0.25 || fractions[2] != 1 {
		t.Fatalf("unexpected progress %v", fractions)
	}

	props, err := os.ReadFile(filepath.Join(dir, "work", "props.json"))
	if err != nil {
		t.Fatalf("read props: %v", err)
	}
	var decoded timeline.Plan
	if err := json.Unmarshal(props, &decoded); err != nil {
		t.Fatalf("decode props: %v", err)
	}
	if decoded.DurationFrames != 90 {
		t.Fatalf("unexpected props %+v", decoded)
	}
}

func TestRenderFailures(t *testing.T) {
	dir := t.TempDir()
	req := providers.RenderRequest{Plan: &timeline.Plan{}, OutputPath: filepath.Join(dir, "a.mp4")}

	failing := command.New(command.Config{Binary: "npx"}, command.WithExecutor(&fakeExecutor{err: errors.New("exit 1")}))
	if _, err := failing.Render(context.Background(), req, nil); err == nil {
		t.Fatal("expected executor error")
	}
	empty := command.New(command.Config{Binary: "npx"}, command.WithExecutor(&fakeExecutor{}))
	if _, err := empty.Render(context.Background(), req, nil); err == nil {
		t.Fatal("expected error for empty output")
	}
	if _, err := empty.Render(context.Background(), providers.RenderRequest{OutputPath: "x"}, nil); err == nil {
		t.Fatal("expected error for nil plan")
	}
}

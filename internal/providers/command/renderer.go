// Package command renders composed plans by invoking an external render
// command, such as the Remotion CLI, with the plan serialised as JSON props.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/providers"
)

const name = "command"

const (
	propsPlaceholder  = "{props}"
	outputPlaceholder = "{output}"
)

var progressPattern = regexp.MustCompile(`Rendered\s+(\d+)\s*/\s*(\d+)`)

// Config configures the render command.
type Config struct {
	Binary     string
	Args       []string
	WorkingDir string
	Timeout    time.Duration
}

// Renderer runs one render command per plan.
type Renderer struct {
	cfg  Config
	exec providers.Executor
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithExecutor overrides the command executor.
func WithExecutor(exec providers.Executor) Option {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// New constructs a Renderer. Commands run inside cfg.WorkingDir.
func New(cfg Config, opts ...Option) *Renderer {
	r := &Renderer{cfg: cfg, exec: providers.CommandExecutor{Dir: cfg.WorkingDir}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements providers.Backend.
func (r *Renderer) Name() string { return name }

// HealthCheck verifies the binary and working directory.
func (r *Renderer) HealthCheck(context.Context) providers.Health {
	if health := providers.CommandHealth(name, r.cfg.Binary); !health.Ready {
		return health
	}
	if dir := strings.TrimSpace(r.cfg.WorkingDir); dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return providers.Unhealthy(name, fmt.Sprintf("working dir %s not accessible", dir))
		}
	}
	return providers.Healthy(name)
}

// Render writes <WorkDir>/props.json and runs the configured command.
func (r *Renderer) Render(ctx context.Context, req providers.RenderRequest, progress func(float64)) (string, error) {
	if req.Plan == nil {
		return "", fmt.Errorf("render: nil plan")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return "", fmt.Errorf("render: empty output path")
	}
	workDir := req.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(req.OutputPath)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("render: create work dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return "", fmt.Errorf("render: create output dir: %w", err)
	}

	props, err := json.Marshal(req.Plan)
	if err != nil {
		return "", fmt.Errorf("render: encode plan: %w", err)
	}
	propsPath := filepath.Join(workDir, "props.json")
	if err := os.WriteFile(propsPath, props, 0o644); err != nil {
		return "", fmt.Errorf("render: write props: %w", err)
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	args := ExpandArgs(r.cfg.Args, propsPath, req.OutputPath)
	err = r.exec.Run(ctx, r.cfg.Binary, args, func(line string) {
		if fraction, ok := ParseProgress(line); ok && progress != nil {
			progress(fraction)
		}
	})
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return "", fmt.Errorf("render: output missing: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("render: output %s is empty", filepath.Base(req.OutputPath))
	}
	if progress != nil {
		progress(1)
	}
	return req.OutputPath, nil
}

// ExpandArgs substitutes the props and output placeholders. When the
// template never mentions {output}, the output path is appended.
func ExpandArgs(template []string, propsPath, outputPath string) []string {
	args := make([]string, 0, len(template)+1)
	sawOutput := false
	for _, arg := range template {
		if strings.Contains(arg, outputPlaceholder) {
			sawOutput = true
		}
		arg = strings.ReplaceAll(arg, propsPlaceholder, propsPath)
		arg = strings.ReplaceAll(arg, outputPlaceholder, outputPath)
		args = append(args, arg)
	}
	if !sawOutput {
		args = append(args, outputPath)
	}
	return args
}

// ParseProgress extracts a completion fraction from "Rendered N/M" lines.
func ParseProgress(line string) (float64, bool) {
	match := progressPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	done, err1 := strconv.Atoi(match[1])
	total, err2 := strconv.Atoi(match[2])
	if err1 != nil || err2 != nil || total <= 0 {
		return 0, false
	}
	fraction := float64(done) / float64(total)
	if fraction > 1 {
		fraction = 1
	}
	return fraction, true
}

// Package pollinations resolves scene backgrounds to generated-image URLs.
package pollinations

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strconv"
	"strings"

	"reelsmith/internal/providers"
	"reelsmith/internal/timeline"
)

const name = "pollinations"

// Config configures the URL builder.
type Config struct {
	BaseURL string
	Model   string
}

// Source builds prompt URLs without contacting the service; the renderer
// fetches the image.
type Source struct {
	cfg Config
}

// New constructs a Source.
func New(cfg Config) *Source {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://image.pollinations.ai/prompt"
	}
	if cfg.Model == "" {
		cfg.Model = "flux"
	}
	return &Source{cfg: cfg}
}

// Name implements providers.Backend.
func (s *Source) Name() string { return name }

// HealthCheck validates the base URL.
func (s *Source) HealthCheck(context.Context) providers.Health {
	if _, err := url.ParseRequestURI(s.cfg.BaseURL); err != nil {
		return providers.Unhealthy(name, fmt.Sprintf("invalid base url: %v", err))
	}
	return providers.Healthy(name)
}

// Find returns the generated-image URL for the scene prompt, falling back to
// the search terms when no prompt is set. The same prompt always yields the
// same URL.
func (s *Source) Find(_ context.Context, query providers.FootageQuery) (string, error) {
	prompt := strings.TrimSpace(query.Prompt)
	if prompt == "" {
		prompt = strings.TrimSpace(strings.Join(query.SearchTerms, ", "))
	}
	if prompt == "" {
		return "", fmt.Errorf("pollinations: scene has no prompt or search terms")
	}
	width, height := timeline.RenderConfig{Orientation: query.Orientation}.Dimensions()

	params := url.Values{}
	params.Set("width", strconv.Itoa(width))
	params.Set("height", strconv.Itoa(height))
	params.Set("model", s.cfg.Model)
	params.Set("nologo", "true")
	params.Set("seed", strconv.FormatUint(uint64(Seed(prompt)), 10))
	return s.cfg.BaseURL + "/" + url.PathEscape(prompt) + "?" + params.Encode(), nil
}

// Seed derives a stable seed from the prompt.
func Seed(prompt string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return h.Sum32() % 1_000_000
}

// Package pexels finds stock background footage through the Pexels video
// search API.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/providers"
	"reelsmith/internal/timeline"
)

const name = "pexels"

// Config configures the Pexels client.
type Config struct {
	APIKey  string
	BaseURL string
	PerPage int
	Timeout time.Duration
}

// Source searches Pexels for scene footage.
type Source struct {
	cfg  Config
	http *providers.RetryingClient
}

// New constructs a Source.
func New(cfg Config, opts ...providers.RetryOption) *Source {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.pexels.com"
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 15
	}
	return &Source{cfg: cfg, http: providers.NewRetryingClient(cfg.Timeout, 2, opts...)}
}

// Name implements providers.Backend.
func (s *Source) Name() string { return name }

// HealthCheck reports whether credentials are configured.
func (s *Source) HealthCheck(context.Context) providers.Health {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		return providers.Unhealthy(name, "api key not configured")
	}
	return providers.Healthy(name)
}

// Video is one search result.
type Video struct {
	ID         int64       `json:"id"`
	Duration   float64     `json:"duration"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	VideoFiles []VideoFile `json:"video_files"`
}

// VideoFile is one rendition of a Video.
type VideoFile struct {
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

type searchResponse struct {
	Videos []Video `json:"videos"`
}

// Find searches each term in order and returns the link of the best match.
// When no result is long enough, the longest result of any term is used.
func (s *Source) Find(ctx context.Context, query providers.FootageQuery) (string, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return "", fmt.Errorf("pexels: no search terms")
	}
	width, height := timeline.RenderConfig{Orientation: query.Orientation}.Dimensions()

	var fallback []Video
	for _, term := range terms {
		videos, err := s.search(ctx, term, query.Orientation)
		if err != nil {
			return "", err
		}
		if link, ok := Pick(videos, query.TargetDurationSeconds, width, height, true); ok {
			return link, nil
		}
		fallback = append(fallback, videos...)
	}
	if link, ok := Pick(fallback, query.TargetDurationSeconds, width, height, false); ok {
		return link, nil
	}
	return "", fmt.Errorf("pexels: no footage found for %q", strings.Join(terms, ", "))
}

func (s *Source) search(ctx context.Context, term string, orientation timeline.Orientation) ([]Video, error) {
	params := url.Values{}
	params.Set("query", term)
	params.Set("per_page", strconv.Itoa(s.cfg.PerPage))
	if orientation != "" {
		params.Set("orientation", string(orientation))
	}
	endpoint := s.cfg.BaseURL + "/videos/search?" + params.Encode()
	data, err := s.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", s.cfg.APIKey)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("pexels: search %q: %w", term, err)
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("pexels: decode search %q: %w", term, err)
	}
	return resp.Videos, nil
}

// Pick selects the mp4 rendition closest to width x height. With
// requireCoverage set, only videos at least target seconds long qualify;
// otherwise the longest video wins and resolution breaks ties.
func Pick(videos []Video, target float64, width, height int, requireCoverage bool) (string, bool) {
	var (
		best      string
		bestScore = -1.0
		bestLen   = -1.0
	)
	for _, video := range videos {
		if requireCoverage && video.Duration < target {
			continue
		}
		for _, file := range video.VideoFiles {
			if file.Link == "" || (file.FileType != "" && file.FileType != "video/mp4") {
				continue
			}
			score := distance(file, width, height)
			better := bestScore < 0 || score < bestScore
			if !requireCoverage {
				better = video.Duration > bestLen || (video.Duration == bestLen && score < bestScore)
			}
			if better {
				best, bestScore, bestLen = file.Link, score, video.Duration
			}
		}
	}
	return best, best != ""
}

// distance penalises orientation mismatches ahead of resolution gaps.
func distance(file VideoFile, width, height int) float64 {
	score := float64(absInt(file.Width-width) + absInt(file.Height-height))
	if (file.Width >= file.Height) != (width >= height) {
		score += 1e6
	}
	return score
}

func searchTerms(query providers.FootageQuery) []string {
	var terms []string
	for _, term := range query.SearchTerms {
		if trimmed := strings.TrimSpace(term); trimmed != "" {
			terms = append(terms, trimmed)
		}
	}
	if len(terms) == 0 {
		if prompt := strings.TrimSpace(query.Prompt); prompt != "" {
			terms = append(terms, prompt)
		}
	}
	return terms
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package pexels_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelsmith/internal/providers"
	"reelsmith/internal/providers/pexels"
	"reelsmith/internal/timeline"
)

func TestPickPrefersOrientationAndCoverage(t *testing.T) {
	videos := []pexels.Video{
		{Duration: 3, VideoFiles: []pexels.VideoFile{{Width: 1080, Height: 1920, FileType: "video/mp4", Link: "short"}}},
		{Duration: 12, VideoFiles: []pexels.VideoFile{
			{Width: 1920, Height: 1080, FileType: "video/mp4", Link: "landscape"},
			{Width: 720, Height: 1280, FileType: "video/mp4", Link: "portrait-sd"},
		}},
		{Duration: 20, VideoFiles: []pexels.VideoFile{{Width: 1080, Height: 1920, FileType: "video/mp4", Link: "portrait-hd"}}},
	}

	link, ok := pexels.Pick(videos, 8, 1080, 1920, true)
	if !ok || link != "portrait-hd" {
		t.Fatalf("expected portrait-hd, got %q %v", link, ok)
	}

	if _, ok := pexels.Pick(videos, 60, 1080, 1920, true); ok {
		t.Fatal("expected no video to cover 60s")
	}
	link, ok = pexels.Pick(videos, 60, 1080, 1920, false)
	if !ok || link != "portrait-hd" {
		t.Fatalf("expected longest video as fallback, got %q", link)
	}
}

func TestFindSearchesTermsInOrder(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Get("orientation") != "portrait" {
			t.Errorf("unexpected orientation %q", r.URL.Query().Get("orientation"))
		}
		query := r.URL.Query().Get("query")
		queries = append(queries, query)
		if query == "ocean" {
			_, _ = w.Write([]byte(`{"videos":[{"duration":30,"video_files":[{"width":1080,"height":1920,"file_type":"video/mp4","link":"https://videos/ocean.mp4"}]}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"videos":[]}`))
	}))
	defer server.Close()

	source := pexels.New(pexels.Config{APIKey: "key", BaseURL: server.URL, Timeout: time.Second},
		providers.WithSleeper(func(time.Duration) {}))
	link, err := source.Find(context.Background(), providers.FootageQuery{
		SearchTerms:           []string{"sunset", "ocean"},
		TargetDurationSeconds: 5,
		Orientation:           timeline.OrientationPortrait,
	})
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if link != "https://videos/ocean.mp4" {
		t.Fatalf("unexpected link %q", link)
	}
	if len(queries) != 2 || queries[0] != "sunset" {
		t.Fatalf("unexpected queries %v", queries)
	}

	if _, err := source.Find(context.Background(), providers.FootageQuery{SearchTerms: []string{"nothing"}}); err == nil {
		t.Fatal("expected error when no footage matches")
	}
	if _, err := source.Find(context.Background(), providers.FootageQuery{}); err == nil {
		t.Fatal("expected error without search terms")
	}
}

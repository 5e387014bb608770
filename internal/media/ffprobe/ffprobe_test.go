package ffprobe

import (
	"math"
	"testing"
)

func TestDecodeAndDurations(t *testing.T) {
	payload := []byte(`{
  "streams": [
    {"index": 0, "codec_type": "audio", "codec_name": "mp3", "duration": "4.128", "sample_rate": "24000", "channels": 1}
  ],
  "format": {"filename": "scene-0-voice.mp3", "duration": "4.200", "size": "33024", "format_name": "mp3"}
}`)
	result, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.AudioDurationSeconds() != 4.128 {
		t.Fatalf("expected stream duration, got %v", result.AudioDurationSeconds())
	}
	if result.DurationSeconds() != 4.2 {
		t.Fatalf("unexpected container duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 33024 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestAudioDurationFallsBackToContainer(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", Duration: "N/A"}},
		Format:  Format{Duration: "6.5"},
	}
	if got := result.AudioDurationSeconds(); got != 6.5 {
		t.Fatalf("expected container fallback, got %v", got)
	}
}

func TestHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.AudioDurationSeconds() != 0 {
		t.Fatalf("expected 0 audio duration, got %v", result.AudioDurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

package whispercli_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"reelsmith/internal/providers/whispercli"
)

const sampleTranscript = `{
  "transcription": [
    {"offsets": {"from": 0, "to": 320}, "text": " Hello"},
    {"offsets": {"from": 320, "to": 320}, "text": " "},
    {"offsets": {"from": 320, "to": 700}, "text": " world"},
    {"offsets": {"from": 700, "to": 900}, "text": "[_BEG_]"}
  ]
}`

type fakeExecutor struct {
	args []string
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string, _ func(string)) error {
	f.args = append([]string(nil), args...)
	prefix := args[slices.Index(args, "-of")+1]
	return os.WriteFile(prefix+".json", []byte(sampleTranscript), 0o644)
}

func TestParseTranscriptSkipsBlanksAndMarkers(t *testing.T) {
	tokens, err := whispercli.ParseTranscript([]byte(sampleTranscript))
	if err != nil {
		t.Fatalf("ParseTranscript returned error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %+v", tokens)
	}
	if tokens[0].Text != " Hello" || tokens[0].EndMs != 320 || tokens[1].StartMs != 320 {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
}

func TestParseTranscriptRejectsGarbage(t *testing.T) {
	if _, err := whispercli.ParseTranscript([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestTranscribeRunsBinary(t *testing.T) {
	exec := &fakeExecutor{}
	tr := whispercli.New(whispercli.Config{
		Model:    "/models/base.bin",
		Language: "en",
		Threads:  4,
		TempDir:  t.TempDir(),
	}, whispercli.WithExecutor(exec))

	tokens, err := tr.Transcribe(context.Background(), []byte("RIFFwav"))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("unexpected tokens %+v", tokens)
	}
	for _, want := range []string{"-oj", "-sow", "/models/base.bin", "en", "4"} {
		if !slices.Contains(exec.args, want) {
			t.Fatalf("expected %q in args %v", want, exec.args)
		}
	}
	if _, err := tr.Transcribe(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestHealthCheckRequiresModel(t *testing.T) {
	tr := whispercli.New(whispercli.Config{Binary: "sh", Model: filepath.Join(t.TempDir(), "missing.bin")})
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("sh not available")
	}
	if health := tr.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected missing model to be unhealthy")
	}
}

package edgetts_test

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"

	"reelsmith/internal/providers"
	"reelsmith/internal/providers/edgetts"
)

type fakeExecutor struct {
	binary string
	args   []string
	write  []byte
	err    error
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, _ func(string)) error {
	f.binary = binary
	f.args = append([]string(nil), args...)
	if f.err != nil {
		return f.err
	}
	idx := slices.Index(args, "--write-media")
	return os.WriteFile(args[idx+1], f.write, 0o644)
}

func TestRate(t *testing.T) {
	cases := map[float64]string{0: "", 1: "", 1.25: "+25%", 0.8: "-20%", 2: "+100%"}
	for speed, want := range cases {
		if got := edgetts.Rate(speed); got != want {
			t.Fatalf("Rate(%v) = %q, want %q", speed, got, want)
		}
	}
}

func TestSynthesizeRunsBinaryWithVoiceAndRate(t *testing.T) {
	exec := &fakeExecutor{write: []byte("ID3audio")}
	synth := edgetts.New(edgetts.Config{Binary: "edge-tts", TempDir: t.TempDir()}, edgetts.WithExecutor(exec))

	speech, err := synth.Synthesize(context.Background(), providers.SpeechRequest{
		Text:  "Hello there",
		Voice: "en-US-AriaNeural",
		Speed: 1.1,
	})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(speech.Audio) != "ID3audio" || speech.Format != "mp3" {
		t.Fatalf("unexpected speech %+v", speech)
	}
	if exec.binary != "edge-tts" {
		t.Fatalf("unexpected binary %q", exec.binary)
	}
	for _, want := range []string{"--voice", "en-US-AriaNeural", "--rate=+10%", "Hello there"} {
		if !slices.Contains(exec.args, want) {
			t.Fatalf("expected %q in args %v", want, exec.args)
		}
	}
}

func TestSynthesizeFailures(t *testing.T) {
	synth := edgetts.New(edgetts.Config{TempDir: t.TempDir()}, edgetts.WithExecutor(&fakeExecutor{err: errors.New("boom")}))
	if _, err := synth.Synthesize(context.Background(), providers.SpeechRequest{Text: "hi"}); err == nil {
		t.Fatal("expected executor error to propagate")
	}
	if _, err := synth.Synthesize(context.Background(), providers.SpeechRequest{Text: "  "}); err == nil {
		t.Fatal("expected error for empty text")
	}
	empty := edgetts.New(edgetts.Config{TempDir: t.TempDir()}, edgetts.WithExecutor(&fakeExecutor{}))
	if _, err := empty.Synthesize(context.Background(), providers.SpeechRequest{Text: "hi"}); err == nil {
		t.Fatal("expected error for empty output")
	}
}

package progress_test

import (
	"testing"

	"reelsmith/internal/progress"
)

func TestStageOrderAndTerminal(t *testing.T) {
	stages := progress.Stages()
	for i := 1; i < len(stages); i++ {
		if stages[i].Rank() <= stages[i-1].Rank() {
			t.Fatalf("stage %s does not rank after %s", stages[i], stages[i-1])
		}
	}
	if progress.Stage("bogus").Rank() != -1 {
		t.Fatal("unknown stage should rank -1")
	}
	for _, s := range stages {
		want := s == progress.StageComplete || s == progress.StageError
		if s.Terminal() != want {
			t.Fatalf("%s.Terminal() = %v", s, s.Terminal())
		}
	}
}

func TestStageLabelAndParse(t *testing.T) {
	if got := progress.StageGeneratingAudio.Label(); got != "Generating Audio" {
		t.Fatalf("label = %q", got)
	}
	if got, ok := progress.ParseStage(" Fetching_Videos "); !ok || got != progress.StageFetchingVideos {
		t.Fatalf("ParseStage = %q %v", got, ok)
	}
	if _, ok := progress.ParseStage("uploading"); ok {
		t.Fatal("expected unknown stage to fail parsing")
	}
}

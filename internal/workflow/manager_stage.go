package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/captions"
	"reelsmith/internal/fileutil"
	"reelsmith/internal/language"
	"reelsmith/internal/logging"
	"reelsmith/internal/progress"
	"reelsmith/internal/providers"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

// sceneAudio is the narration prepared for one scene.
type sceneAudio struct {
	playbackFile      string
	transcriptionPath string
	durationSeconds   float64
}

// runPipeline drives a job through every stage. Stages run one after the
// other across all scenes, and scenes within a stage run in input order.
func (m *Manager) runPipeline(ctx context.Context, job *queue.Job, req SubmitRequest, tracker *progressTracker) error {
	workDir := m.cfg.JobWorkDir(job.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrResource, string(progress.StageGeneratingAudio), "work dir", "could not create job work directory", err)
	}
	cfg := req.Config.Normalize(m.cfg.Render.Defaults)
	total := len(req.Scenes)
	m.warnLanguageMismatch(ctx, cfg.Voice)

	audio := make([]sceneAudio, total)
	tracker.step(ctx, progress.StageGeneratingAudio, 0, total, "Generating narration")
	for i, scene := range req.Scenes {
		sceneCtx := services.WithScene(services.WithStage(ctx, string(progress.StageGeneratingAudio)), i)
		prepared, err := m.prepareAudio(sceneCtx, workDir, i, scene, cfg)
		if err != nil {
			return err
		}
		audio[i] = prepared
		tracker.step(ctx, progress.StageGeneratingAudio, i+1, total, sceneMessage("Narrated", i, total))
	}

	records := make([]timeline.SceneRecord, total)
	tracker.step(ctx, progress.StageTranscribing, 0, total, "Transcribing narration")
	for i := range req.Scenes {
		sceneCtx := services.WithScene(services.WithStage(ctx, string(progress.StageTranscribing)), i)
		tokens, err := m.transcribe(sceneCtx, audio[i])
		if err != nil {
			return err
		}
		records[i] = timeline.SceneRecord{
			Captions: tokens,
			Audio: timeline.AudioRef{
				URL:             m.cfg.PublicURL(job.ID, audio[i].playbackFile),
				DurationSeconds: audio[i].durationSeconds,
			},
		}
		tracker.step(ctx, progress.StageTranscribing, i+1, total, sceneMessage("Transcribed", i, total))
	}

	tracker.step(ctx, progress.StageFetchingVideos, 0, total, "Finding background footage")
	for i, scene := range req.Scenes {
		sceneCtx := services.WithScene(services.WithStage(ctx, string(progress.StageFetchingVideos)), i)
		ref, err := m.collab.Footage.Find(sceneCtx, providers.FootageQuery{
			SearchTerms:           scene.SearchTerms,
			Prompt:                scene.Prompt,
			TargetDurationSeconds: audio[i].durationSeconds,
			Orientation:           cfg.Orientation,
		})
		if err != nil {
			return stageError(progress.StageFetchingVideos, "find footage", fmt.Sprintf("scene %d", i), err)
		}
		records[i].VideoRef = ref
		tracker.step(ctx, progress.StageFetchingVideos, i+1, total, sceneMessage("Found footage for", i, total))
	}

	tracker.step(ctx, progress.StageComposing, 0, 1, "Composing timeline")
	plan, err := timeline.Compose(records, cfg, m.cfg.Render.FPS, timeline.Options{
		Pagination: m.cfg.Captions,
		Animation:  m.cfg.Animation,
	})
	if err != nil {
		return err
	}
	tracker.step(ctx, progress.StageComposing, 1, 1, fmt.Sprintf("Composed %d frames", plan.DurationFrames))

	if err := m.checkFreeSpace(); err != nil {
		return err
	}

	tracker.step(ctx, progress.StageRendering, 0, 1, "Rendering")
	renderCtx := services.WithStage(ctx, string(progress.StageRendering))
	rendered, err := m.collab.Renderer.Render(renderCtx, providers.RenderRequest{
		Plan:       plan,
		OutputPath: filepath.Join(workDir, "render.mp4"),
		WorkDir:    workDir,
	}, func(fraction float64) {
		tracker.report(ctx, progress.StageRendering, bandPercent(progress.StageRendering, fraction), fmt.Sprintf("Rendering %.0f%%", fraction*100))
	})
	if err != nil {
		return stageError(progress.StageRendering, "render", "renderer failed", err)
	}
	if err := fileutil.MoveFile(rendered, m.cfg.ArtifactPath(job.ID)); err != nil {
		return services.Wrap(services.ErrResource, string(progress.StageRendering), "store artifact", "could not move rendered video into the output directory", err)
	}
	return nil
}

func (m *Manager) prepareAudio(ctx context.Context, workDir string, index int, scene SceneInput, cfg timeline.RenderConfig) (sceneAudio, error) {
	speech, err := m.collab.Speech.Synthesize(ctx, providers.SpeechRequest{
		Text:  scene.Text,
		Voice: cfg.Voice,
		Speed: cfg.TTSSpeed,
	})
	if err != nil {
		return sceneAudio{}, stageError(progress.StageGeneratingAudio, "synthesize", fmt.Sprintf("scene %d", index), err)
	}
	if len(speech.Audio) == 0 {
		return sceneAudio{}, services.Wrap(services.ErrCollaborator, string(progress.StageGeneratingAudio), "synthesize", fmt.Sprintf("scene %d produced no audio", index), nil)
	}
	ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(speech.Format)), ".")
	if ext == "" {
		ext = "mp3"
	}
	raw := filepath.Join(workDir, fmt.Sprintf("scene-%d-speech.%s", index, ext))
	if err := os.WriteFile(raw, speech.Audio, 0o644); err != nil {
		return sceneAudio{}, services.Wrap(services.ErrResource, string(progress.StageGeneratingAudio), "write speech", "could not write narration audio", err)
	}

	playbackFile := fmt.Sprintf("scene-%d-voice.mp3", index)
	dst := providers.NormalizedAudio{
		PlaybackPath:      filepath.Join(workDir, playbackFile),
		TranscriptionPath: filepath.Join(workDir, fmt.Sprintf("scene-%d-voice.wav", index)),
	}
	if err := m.collab.Normalizer.Normalize(ctx, raw, dst); err != nil {
		return sceneAudio{}, stageError(progress.StageGeneratingAudio, "normalize", fmt.Sprintf("scene %d", index), err)
	}

	duration := speech.DurationSeconds
	if m.collab.Prober != nil {
		probed, err := m.collab.Prober.Duration(ctx, dst.PlaybackPath)
		switch {
		case err == nil && probed > 0:
			duration = probed
		case err != nil:
			logging.WithContext(ctx, m.logger).Warn("duration probe failed; using nominal length",
				logging.Error(err),
				logging.Float64("nominal_seconds", speech.DurationSeconds),
				logging.String(logging.FieldEventType, "duration_probe_failed"),
				logging.String(logging.FieldErrorHint, "check ffprobe installation"),
			)
		}
	}
	if duration <= 0 {
		return sceneAudio{}, services.Wrap(services.ErrCollaborator, string(progress.StageGeneratingAudio), "duration", fmt.Sprintf("scene %d narration has no measurable duration", index), nil)
	}
	return sceneAudio{
		playbackFile:      playbackFile,
		transcriptionPath: dst.TranscriptionPath,
		durationSeconds:   duration,
	}, nil
}

func (m *Manager) transcribe(ctx context.Context, audio sceneAudio) ([]captions.Token, error) {
	index, _ := services.SceneFromContext(ctx)
	data, err := os.ReadFile(audio.transcriptionPath)
	if err != nil {
		return nil, services.Wrap(services.ErrResource, string(progress.StageTranscribing), "read audio", fmt.Sprintf("scene %d transcription audio missing", index), err)
	}
	tokens, err := m.collab.Transcriber.Transcribe(ctx, data)
	if err != nil {
		return nil, stageError(progress.StageTranscribing, "transcribe", fmt.Sprintf("scene %d", index), err)
	}
	if len(tokens) == 0 {
		return nil, services.Wrap(services.ErrCollaborator, string(progress.StageTranscribing), "transcribe", fmt.Sprintf("scene %d transcript is empty", index), nil)
	}
	return tokens, nil
}

// stageError classifies a collaborator failure. Errors that already carry a
// classification pass through; deadlines become timeouts.
func stageError(stage progress.Stage, operation, message string, err error) error {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	marker := services.ErrCollaborator
	if errors.Is(err, context.DeadlineExceeded) {
		marker = services.ErrTimeout
	}
	return services.Wrap(marker, string(stage), operation, message, err)
}

// warnLanguageMismatch flags voices whose locale differs from the fixed
// transcription language; captions for such jobs are usually garbage.
func (m *Manager) warnLanguageMismatch(ctx context.Context, voice string) {
	if m.cfg.Providers.Transcriber != "whisper" {
		return
	}
	spoken := language.FromVoice(voice)
	transcribed := m.cfg.Whisper.Language
	if spoken == "" || transcribed == language.Auto || spoken == transcribed {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, m.logger), "voice language differs from transcription language", "language_mismatch",
		logging.String("voice", voice),
		logging.String("voice_language", language.DisplayName(spoken)),
		logging.String("transcription_language", language.DisplayName(transcribed)),
		logging.String(logging.FieldImpact, "captions may not match the narration"),
		logging.String(logging.FieldErrorHint, "set whisper.language to auto or pick a matching voice"),
	)
}

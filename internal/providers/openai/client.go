// Package openai implements speech synthesis and word-level transcription
// against the OpenAI audio API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/captions"
	"reelsmith/internal/providers"
)

// Config configures the OpenAI client.
type Config struct {
	APIKey             string
	BaseURL            string
	SpeechModel        string
	SpeechVoice        string
	TranscriptionModel string
	Timeout            time.Duration
	MaxRetries         int
}

// Client talks to the OpenAI audio endpoints. One Client serves both the
// speech and transcription roles.
type Client struct {
	cfg  Config
	http *providers.RetryingClient
}

// New constructs a Client. Retry options are forwarded to the underlying
// RetryingClient.
func New(cfg Config, opts ...providers.RetryOption) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "tts-1"
	}
	if cfg.SpeechVoice == "" {
		cfg.SpeechVoice = "alloy"
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = "whisper-1"
	}
	return &Client{
		cfg:  cfg,
		http: providers.NewRetryingClient(cfg.Timeout, cfg.MaxRetries, opts...),
	}
}

// Name implements providers.Backend.
func (c *Client) Name() string { return "openai" }

// HealthCheck reports whether credentials are configured.
func (c *Client) HealthCheck(context.Context) providers.Health {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return providers.Unhealthy(c.Name(), "api key not configured")
	}
	return providers.Healthy(c.Name())
}

type speechPayload struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

// Synthesize implements providers.SpeechSynthesizer.
func (c *Client) Synthesize(ctx context.Context, req providers.SpeechRequest) (providers.Speech, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return providers.Speech{}, fmt.Errorf("openai speech: empty text")
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" || strings.Contains(voice, "Neural") {
		// Edge voice names are not valid here.
		voice = c.cfg.SpeechVoice
	}
	payload, err := json.Marshal(speechPayload{
		Model:          c.cfg.SpeechModel,
		Input:          text,
		Voice:          voice,
		Speed:          clampSpeed(req.Speed),
		ResponseFormat: "mp3",
	})
	if err != nil {
		return providers.Speech{}, fmt.Errorf("openai speech: encode request: %w", err)
	}
	audio, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/speech", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		c.authorize(httpReq)
		return httpReq, nil
	})
	if err != nil {
		return providers.Speech{}, fmt.Errorf("openai speech: %w", err)
	}
	if len(audio) == 0 {
		return providers.Speech{}, fmt.Errorf("openai speech: empty response")
	}
	return providers.Speech{Audio: audio, Format: "mp3"}, nil
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Words []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// Transcribe implements providers.Transcriber using word timestamp
// granularity.
func (c *Client) Transcribe(ctx context.Context, audio []byte) ([]captions.Token, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai transcription: empty audio")
	}
	body, contentType, err := c.transcriptionForm(audio)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	data, err := c.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", contentType)
		c.authorize(httpReq)
		return httpReq, nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	var resp transcriptionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("openai transcription: decode response: %w", err)
	}
	tokens := make([]captions.Token, 0, len(resp.Words))
	for _, word := range resp.Words {
		text := strings.TrimSpace(word.Word)
		if text == "" {
			continue
		}
		if len(tokens) > 0 {
			text = " " + text
		}
		start := secondsToMs(word.Start)
		end := max(secondsToMs(word.End), start)
		tokens = append(tokens, captions.Token{Text: text, StartMs: start, EndMs: end})
	}
	if err := captions.Validate(tokens); err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	return tokens, nil
}

func (c *Client) transcriptionForm(audio []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	fields := [][2]string{
		{"model", c.cfg.TranscriptionModel},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (c *Client) authorize(req *http.Request) {
	if key := strings.TrimSpace(c.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}

func clampSpeed(speed float64) float64 {
	switch {
	case speed <= 0:
		return 0
	case speed < 0.25:
		return 0.25
	case speed > 4:
		return 4
	default:
		return speed
	}
}

func secondsToMs(seconds float64) int64 {
	if seconds <= 0 {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}

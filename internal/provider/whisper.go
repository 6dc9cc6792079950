package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"lorisbot/internal/domain"
)

// Whisper implements domain.Transcriber against an OpenAI-style
// /audio/transcriptions endpoint. OpenAI and Groq host the same route but
// expect different form fields, so each gets its own constructor.
type Whisper struct {
	name           string
	apiBase        string
	apiKey         string
	model          string
	responseFormat string
	temperature    string // empty = omit the field
	client         *http.Client
	logger         *slog.Logger
}

type WhisperConfig struct {
	APIBase string
	APIKey  string
	Model   string
	Client  *http.Client
	Logger  *slog.Logger
}

// NewOpenAIWhisper transcribes via OpenAI: plain json response format.
func NewOpenAIWhisper(cfg WhisperConfig) *Whisper {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	return newWhisper("openai", cfg, "json", "")
}

// NewGroqWhisper transcribes via Groq: verbose_json response format and a
// pinned zero temperature, matching Groq's recommended request shape.
func NewGroqWhisper(cfg WhisperConfig) *Whisper {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-large-v3-turbo"
	}
	return newWhisper("groq", cfg, "verbose_json", "0")
}

func newWhisper(name string, cfg WhisperConfig, responseFormat, temperature string) *Whisper {
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	return &Whisper{
		name:           name,
		apiBase:        cfg.APIBase,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		responseFormat: responseFormat,
		temperature:    temperature,
		client:         cfg.Client,
		logger:         cfg.Logger,
	}
}

func (w *Whisper) Name() string { return w.name }

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file as multipart form data and returns the
// transcript text.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}

	writer.WriteField("model", w.model)
	writer.WriteField("response_format", w.responseFormat)
	if w.temperature != "" {
		writer.WriteField("temperature", w.temperature)
	}
	writer.Close()

	url := w.apiBase + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s transcription request: %w", w.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s transcription error (status %d): %s", w.name, resp.StatusCode, string(respBody))
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	w.logger.Info("transcription complete",
		"provider", w.name,
		"text_len", len(result.Text),
	)

	return result.Text, nil
}

var _ domain.Transcriber = (*Whisper)(nil)

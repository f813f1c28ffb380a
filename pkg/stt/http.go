package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/openclaw/voicehub/internal/httpc"
)

// Config holds HTTP engine configuration.
type Config struct {
	// BaseURL is the transcription endpoint.
	// Default: the OpenAI audio transcriptions API.
	BaseURL string

	// APIKey is the bearer credential, optional for local servers.
	APIKey string

	// Model is the transcription model identifier.
	Model string

	// Language hints the spoken language (ISO 639-1), optional.
	Language string

	// Timeout bounds a single transcription call.
	Timeout time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the engine.
type Option func(*Config)

// WithBaseURL sets the transcription endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the bearer credential.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithLanguage hints the spoken language.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithTimeout bounds a single transcription call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// HTTPEngine posts WAV uploads to a Whisper-compatible endpoint.
type HTTPEngine struct {
	config *Config
	client *http.Client
}

// NewHTTPEngine creates an HTTP transcription engine.
func NewHTTPEngine(opts ...Option) (*HTTPEngine, error) {
	cfg := &Config{
		BaseURL: "https://api.openai.com/v1/audio/transcriptions",
		Model:   "whisper-1",
		Timeout: 30 * time.Second,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &HTTPEngine{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
	}, nil
}

// Name returns "http".
func (h *HTTPEngine) Name() string { return "http" }

// Transcribe uploads the utterance and returns the transcript text.
func (h *HTTPEngine) Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", ErrEmptyTranscript
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", fmt.Errorf("stt: create form file: %w", err)
	}
	if _, err := part.Write(EncodeWAV(samples, sampleRate)); err != nil {
		return "", fmt.Errorf("stt: write audio: %w", err)
	}

	writer.WriteField("model", h.config.Model)
	if h.config.Language != "" {
		writer.WriteField("language", h.config.Language)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("stt: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.config.BaseURL, &body)
	if err != nil {
		return "", fmt.Errorf("stt: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if h.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("stt: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("stt: decode response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

// Health checks endpoint reachability.
func (h *HTTPEngine) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.config.BaseURL, nil)
	if err != nil {
		return err
	}
	if h.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("stt: health check: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Close releases resources.
func (h *HTTPEngine) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// Verify HTTPEngine implements Engine at compile time.
var _ Engine = (*HTTPEngine)(nil)

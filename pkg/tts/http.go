package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openclaw/voicehub/internal/httpc"
	"github.com/openclaw/voicehub/pkg/audioio"
)

const defaultSpeechURL = "https://api.openai.com/v1/audio/speech"

// HTTPEngine implements Engine for OpenAI-compatible speech endpoints.
// The endpoint is asked for raw PCM output (24kHz mono PCM16).
type HTTPEngine struct {
	config *Config
	model  string
	client *http.Client
}

// NewHTTPEngine creates an HTTP speech engine.
func NewHTTPEngine(model string, opts ...Option) (*HTTPEngine, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = defaultSpeechURL
	cfg.SampleRate = 24000
	cfg.Voice = "alloy"
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError("http", fmt.Errorf("api key required"))
	}
	if model == "" {
		model = "tts-1"
	}

	return &HTTPEngine{
		config: cfg,
		model:  model,
		client: httpc.NewClient(cfg.Timeout),
	}, nil
}

// Name returns "http".
func (h *HTTPEngine) Name() string { return "http" }

// Synthesize requests PCM audio for the text.
func (h *HTTPEngine) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, WrapError(h.Name(), ErrEmptyText)
	}

	start := time.Now()

	payload := map[string]interface{}{
		"model":           h.model,
		"voice":           h.config.Voice,
		"input":           text,
		"response_format": "pcm",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(h.Name(), fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(h.Name(), fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, WrapError(h.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, WrapError(h.Name(), fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(h.Name(), fmt.Errorf("read audio: %w", err))
	}

	return &AudioResult{
		PCM:        audioio.BytesToSamples(audio),
		SampleRate: h.config.SampleRate,
		CharCount:  len(text),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Health checks endpoint reachability with an empty-model probe.
func (h *HTTPEngine) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.config.BaseURL, nil)
	if err != nil {
		return WrapError(h.Name(), err)
	}
	req.Header.Set("Authorization", "Bearer "+h.config.APIKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return WrapError(h.Name(), err)
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

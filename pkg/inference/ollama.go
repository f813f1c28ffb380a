package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openclaw/voicehub/internal/httpc"
)

// OllamaClient talks to the Ollama native chat API, which streams
// newline-delimited JSON rather than SSE.
type OllamaClient struct {
	name    string
	baseURL string
	config  *Config
	http    *http.Client
	stream  *http.Client
}

// NewOllamaClient creates a client for a local Ollama server.
func NewOllamaClient(opts ...Option) (*OllamaClient, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://localhost:11434"
	cfg.Apply(opts...)

	return &OllamaClient{
		name:    "ollama",
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		http:    httpc.NewClientWithConnectTimeout(cfg.Timeout, cfg.ConnectTimeout),
		stream:  httpc.NewClientWithConnectTimeout(cfg.StreamTimeout, cfg.ConnectTimeout),
	}, nil
}

// Name returns the provider identifier.
func (c *OllamaClient) Name() string { return c.name }

// Chat generates a complete (non-streaming) response.
func (c *OllamaClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	resp, err := c.post(ctx, c.http, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(c.name, fmt.Errorf("decode response: %w", err))
	}

	return &ChatResponse{
		Message:      NewAssistantMessage(result.Message.Content),
		FinishReason: result.DoneReason,
		Usage: Usage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
			TotalTokens:      result.PromptEvalCount + result.EvalCount,
		},
		Model:     result.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Stream returns a streaming chat response.
func (c *OllamaClient) Stream(ctx context.Context, req *ChatRequest) (Stream, error) {
	resp, err := c.post(ctx, c.stream, req, true)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.parseError(resp)
	}

	return &ollamaStream{
		provider: c.name,
		reader:   bufio.NewReader(resp.Body),
		body:     resp.Body,
	}, nil
}

// Health checks server connectivity.
func (c *OllamaClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return WrapError(c.name, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return WrapError(c.name, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// Close releases resources.
func (c *OllamaClient) Close() error {
	c.http.CloseIdleConnections()
	c.stream.CloseIdleConnections()
	return nil
}

func (c *OllamaClient) post(ctx context.Context, client *http.Client, req *ChatRequest, stream bool) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	if model == "" {
		return nil, WrapError(c.name, ErrNoModel)
	}

	messages := make([]map[string]string, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = map[string]string{
			"role":    string(msg.Role),
			"content": msg.Content,
		}
	}

	options := map[string]interface{}{}
	temp := req.Temperature
	if temp == 0 {
		temp = c.config.Temperature
	}
	if temp > 0 {
		options["temperature"] = temp
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}

	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
		"stream":   stream,
		"options":  options,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(c.name, fmt.Errorf("marshal payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(c.name, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, WrapError(c.name, err)
	}
	return resp, nil
}

func (c *OllamaClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error string `json:"error"`
	}
	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   c.name,
	}
}

// ollamaStream implements Stream for newline-delimited JSON responses.
type ollamaStream struct {
	provider string
	reader   *bufio.Reader
	body     io.ReadCloser
	closed   bool
}

// Recv returns the next stream chunk.
func (s *ollamaStream) Recv() (*StreamChunk, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err == io.EOF {
			return &StreamChunk{Done: true}, nil
		}
		if err != nil {
			return nil, WrapError(s.provider, fmt.Errorf("read stream: %w", err))
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var event ollamaChatResponse
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			// Skip malformed fragments
			continue
		}

		return &StreamChunk{
			Delta:        event.Message.Content,
			FinishReason: event.DoneReason,
			Done:         event.Done,
		}, nil
	}
}

// Close stops the stream.
func (s *ollamaStream) Close() error {
	s.closed = true
	return s.body.Close()
}

// ollamaChatResponse covers both streaming fragments and full responses.
type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Verify OllamaClient implements Provider at compile time.
var _ Provider = (*OllamaClient)(nil)

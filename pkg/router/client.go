package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openclaw/voicehub/internal/httpc"
)

// ErrAgentTimeout is returned when the specialist agent did not answer
// within the request timeout.
var ErrAgentTimeout = errors.New("router: agent timed out")

// AgentClient performs synchronous requests to specialist agents
// behind the gateway.
type AgentClient struct {
	gateway string
	token   string
	client  *http.Client
}

// NewAgentClient creates a client for the gateway. The token is the
// bearer credential, optional for unauthenticated gateways.
func NewAgentClient(gateway, token string, timeout time.Duration) *AgentClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AgentClient{
		gateway: strings.TrimSuffix(gateway, "/"),
		token:   token,
		client:  httpc.NewClient(timeout),
	}
}

// Send posts one message to the agent and returns its reply text.
func (c *AgentClient) Send(ctx context.Context, agentID, message string) (string, error) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", fmt.Errorf("router: marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/api/agents/%s/message", c.gateway, agentID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("router: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", ErrAgentTimeout
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrAgentTimeout
		}
		return "", fmt.Errorf("router: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("router: agent %s returned status %d: %s",
			agentID, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	// Agents answer with either a "response" or a "message" field.
	var result struct {
		Response string `json:"response"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("router: decode response: %w", err)
	}

	text := result.Response
	if text == "" {
		text = result.Message
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("router: agent %s returned an empty reply", agentID)
	}
	return text, nil
}

// Close releases resources.
func (c *AgentClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Package router hands a turn off to a specialist agent when the reply
// carried a routing marker, bypassing the streaming pipeline.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/openclaw/voicehub/pkg/audioio"
	"github.com/openclaw/voicehub/pkg/cmdlog"
	"github.com/openclaw/voicehub/pkg/memory"
	"github.com/openclaw/voicehub/pkg/segment"
	"github.com/openclaw/voicehub/pkg/tts"
	"github.com/openclaw/voicehub/pkg/voice"
)

// Fixed spoken failure messages, one per failure kind.
const (
	timeoutMessage = "That specialist is taking too long. Try again in a bit."
	failureMessage = "I couldn't reach that specialist right now."
)

// truncationNotice is appended when an overly long reply is cut.
const truncationNotice = ". Full response sent to Telegram."

// defaultMaxWords caps the spoken portion of an agent reply.
const defaultMaxWords = 150

// defaultBridgePhrases announce the hand-off; %s is the agent's
// display name.
var defaultBridgePhrases = []string{
	"Let me ask %s about that.",
	"Handing this to %s.",
	"One moment, checking with %s.",
	"%s will know. Asking now.",
}

// Config holds router settings.
type Config struct {
	// BridgePhrases override the built-in hand-off announcements.
	// Each must contain one %s for the agent display name.
	BridgePhrases []string `yaml:"bridge_phrases" json:"bridge_phrases"`

	// DisplayNames maps agent ids to spoken names. Missing entries
	// fall back to the id.
	DisplayNames map[string]string `yaml:"display_names" json:"display_names"`

	// MaxWords caps the spoken reply length. Default: 150.
	MaxWords int `yaml:"max_words" json:"max_words"`

	// OnOutcome is an optional observability hook called once per
	// exchange with the outcome status (routed, agent_timeout,
	// agent_error).
	OnOutcome func(status string) `yaml:"-" json:"-"`
}

// Router speaks a bridge phrase, calls the specialist, and speaks the
// answer.
type Router struct {
	cfg    Config
	client *AgentClient
	engine tts.Engine
	sink   audioio.Sink
	mem    *memory.Memory
	log    *cmdlog.Logger
	logger *slog.Logger
	pick   func(n int) int
}

// New creates a Router.
func New(cfg Config, client *AgentClient, engine tts.Engine, sink audioio.Sink, mem *memory.Memory, log *cmdlog.Logger, logger *slog.Logger) *Router {
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = defaultMaxWords
	}
	if len(cfg.BridgePhrases) == 0 {
		cfg.BridgePhrases = defaultBridgePhrases
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:    cfg,
		client: client,
		engine: engine,
		sink:   sink,
		mem:    mem,
		log:    log,
		logger: logger.With("component", "router"),
		pick:   rand.Intn,
	}
}

// Handle performs one routed exchange: announce, call the specialist,
// speak the (possibly truncated) reply, and record the turn. On
// failure a distinct fixed message per kind is spoken and no assistant
// turn is written.
func (r *Router) Handle(ctx context.Context, transcript string, route *voice.Route) {
	name := r.displayName(route.AgentID)

	bridge := fmt.Sprintf(r.cfg.BridgePhrases[r.pick(len(r.cfg.BridgePhrases))], name)
	if err := tts.Speak(ctx, r.engine, r.sink, bridge); err != nil {
		r.logger.Warn("bridge phrase playback failed", "error", err)
	}

	reply, err := r.client.Send(ctx, route.AgentID, route.Query)
	if err != nil {
		spoken := failureMessage
		kind := "agent_error"
		if errors.Is(err, ErrAgentTimeout) {
			spoken = timeoutMessage
			kind = "agent_timeout"
		}
		r.logger.Error("specialist agent failed",
			"agent", route.AgentID,
			"kind", kind,
			"error", err,
		)
		if err := tts.Speak(ctx, r.engine, r.sink, spoken); err != nil {
			r.logger.Warn("failure message playback failed", "error", err)
		}
		r.appendLog(transcript, route.AgentID, kind, err.Error())
		r.outcome(kind)
		return
	}

	spoken, truncated := truncate(segment.CleanForSpeech(reply), r.cfg.MaxWords)
	if truncated {
		r.logger.Info("agent reply truncated for speech",
			"agent", route.AgentID,
			"words", r.cfg.MaxWords,
		)
	}

	if err := tts.Speak(ctx, r.engine, r.sink, spoken); err != nil {
		r.logger.Warn("agent reply playback failed", "error", err)
	}

	r.mem.AddAssistant(fmt.Sprintf("[Routed to %s] %s", name, reply))
	r.appendLog(transcript, route.AgentID, "routed", reply)
	r.outcome("routed")
}

func (r *Router) outcome(status string) {
	if r.cfg.OnOutcome != nil {
		r.cfg.OnOutcome(status)
	}
}

func (r *Router) displayName(agentID string) string {
	if name, ok := r.cfg.DisplayNames[agentID]; ok && name != "" {
		return name
	}
	return agentID
}

func (r *Router) appendLog(transcript, agentID, mode, response string) {
	if r.log == nil {
		return
	}
	if err := r.log.Append(transcript, agentID, mode, response); err != nil {
		r.logger.Warn("command log write failed", "error", err)
	}
}

// truncate cuts text to maxWords, appending the truncation notice.
func truncate(text string, maxWords int) (string, bool) {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text, false
	}
	return strings.Join(words[:maxWords], " ") + truncationNotice, true
}

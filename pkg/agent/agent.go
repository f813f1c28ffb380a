// Package agent runs the conversation loop: wait for push-to-talk,
// capture an utterance, transcribe it, and answer through the
// streaming pipeline or a specialist agent.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/voicehub/internal/metrics"
	"github.com/openclaw/voicehub/pkg/audioio"
	"github.com/openclaw/voicehub/pkg/capture"
	"github.com/openclaw/voicehub/pkg/cmdlog"
	"github.com/openclaw/voicehub/pkg/command"
	"github.com/openclaw/voicehub/pkg/hub"
	"github.com/openclaw/voicehub/pkg/inference"
	"github.com/openclaw/voicehub/pkg/memory"
	"github.com/openclaw/voicehub/pkg/router"
	"github.com/openclaw/voicehub/pkg/stt"
	"github.com/openclaw/voicehub/pkg/tts"
	"github.com/openclaw/voicehub/pkg/voice"
)

const didNotCatchMessage = "I didn't catch that."

// Config holds agent loop settings.
type Config struct {
	// SampleRate of captured audio handed to transcription.
	// Default: 16000.
	SampleRate int

	// ErrorPause is how long the loop sleeps after an unexpected
	// turn failure before resuming. Default: 2s.
	ErrorPause time.Duration

	// Activation and deactivation cue tones. Zero frequency
	// disables the cue.
	BeepFrequency         float64
	BeepDuration          time.Duration
	DeactivationFrequency float64
	DeactivationDuration  time.Duration
}

func (c *Config) setDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.ErrorPause <= 0 {
		c.ErrorPause = 2 * time.Second
	}
}

// DefaultConfig returns the agent defaults, cue tones included.
func DefaultConfig() Config {
	return Config{
		SampleRate:            16000,
		ErrorPause:            2 * time.Second,
		BeepFrequency:         880,
		BeepDuration:          100 * time.Millisecond,
		DeactivationFrequency: 440,
		DeactivationDuration:  80 * time.Millisecond,
	}
}

// Deps are the collaborators the agent orchestrates. Recorder,
// Transcriber, Pipeline, Memory, Commands, Trigger, and Sink are
// required; the rest are optional.
type Deps struct {
	Recorder    *capture.Recorder
	Transcriber stt.Engine
	Pipeline    *voice.Pipeline
	Router      *router.Router
	Memory      *memory.Memory
	Commands    *command.Matcher
	Trigger     Trigger

	// Speech is the direct synthesis engine for short prompts
	// spoken outside the pipeline. Nil disables spoken prompts.
	Speech tts.Engine
	Sink   audioio.Sink

	CmdLog  *cmdlog.Logger
	Hub     *hub.Hub
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Recorder == nil:
		return errors.New("agent: recorder is required")
	case d.Transcriber == nil:
		return errors.New("agent: transcriber is required")
	case d.Pipeline == nil:
		return errors.New("agent: pipeline is required")
	case d.Memory == nil:
		return errors.New("agent: memory is required")
	case d.Commands == nil:
		return errors.New("agent: command matcher is required")
	case d.Trigger == nil:
		return errors.New("agent: trigger is required")
	case d.Sink == nil:
		return errors.New("agent: sink is required")
	}
	return nil
}

// Agent drives the conversation state machine. One turn runs at a
// time; activation during playback interrupts it and starts a new
// recording.
type Agent struct {
	cfg  Config
	deps Deps

	state  atomic.Int32
	turnCh chan struct{}
	logger *slog.Logger
}

// New creates an Agent. Missing required dependencies are an error.
func New(cfg Config, deps Deps) (*Agent, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		cfg:    cfg,
		deps:   deps,
		turnCh: make(chan struct{}, 1),
		logger: logger.With("component", "agent"),
	}, nil
}

// State reports the current conversation state.
func (a *Agent) State() State {
	return State(a.state.Load())
}

func (a *Agent) setState(s State) {
	old := State(a.state.Swap(int32(s)))
	if old != s {
		a.logger.Debug("state transition", "from", old.String(), "to", s.String())
		a.publish(hub.Event{Type: hub.EventState, State: s.String()})
	}
}

// Activate handles one push-to-talk event. Safe to call from any
// goroutine at any time, including mid-run.
func (a *Agent) Activate() {
	switch a.State() {
	case Speaking:
		a.logger.Info("activation during speech, interrupting")
		a.deps.Pipeline.Interrupt()
		a.queueTurn()
	case Idle:
		a.queueTurn()
	default:
		a.logger.Debug("activation ignored", "state", a.State().String())
	}
}

func (a *Agent) queueTurn() {
	select {
	case a.turnCh <- struct{}{}:
	default:
	}
}

// Run executes the daemon loop until ctx is cancelled. Unexpected
// turn failures are logged and the loop resumes after a short pause;
// nothing short of cancellation stops it.
func (a *Agent) Run(ctx context.Context) error {
	go a.watchTrigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.turnCh:
			a.runTurn(ctx)
		}
	}
}

func (a *Agent) watchTrigger(ctx context.Context) {
	events := a.deps.Trigger.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			a.Activate()
		}
	}
}

// runTurn executes one full conversation turn. Panics are contained
// so a misbehaving engine cannot kill the daemon.
func (a *Agent) runTurn(ctx context.Context) {
	start := time.Now()
	turnID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("turn panicked", "turn", turnID, "panic", r)
			a.setState(Idle)
			a.pause(ctx, a.cfg.ErrorPause)
		}
	}()

	a.setState(Recording)
	a.cue(ctx, a.cfg.BeepFrequency, a.cfg.BeepDuration)

	samples, err := a.deps.Recorder.Record(ctx)
	a.cue(ctx, a.cfg.DeactivationFrequency, a.cfg.DeactivationDuration)
	if err != nil {
		if errors.Is(err, capture.ErrNoSpeech) {
			a.logger.Info("no speech detected", "turn", turnID)
			a.deps.Metrics.RecordCaptureDiscard()
		} else if !errors.Is(err, context.Canceled) {
			a.logger.Error("capture failed", "turn", turnID, "error", err)
			a.pause(ctx, a.cfg.ErrorPause)
		}
		a.setState(Idle)
		return
	}

	a.setState(Processing)

	text, err := a.deps.Transcriber.Transcribe(ctx, samples, a.cfg.SampleRate)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil && !errors.Is(err, stt.ErrEmptyTranscript) {
			a.logger.Error("transcription failed", "turn", turnID, "error", err)
		}
		a.speak(ctx, didNotCatchMessage)
		a.setState(Idle)
		return
	}
	text = strings.TrimSpace(text)

	a.logger.Info("user said", "turn", turnID, "text", text)
	a.publish(hub.Event{Type: hub.EventTranscript, TurnID: turnID, Text: text})

	if kind := a.deps.Commands.Match(text); kind != command.None {
		a.handleCommand(ctx, turnID, text, kind)
		a.setState(Idle)
		return
	}

	a.setState(Speaking)
	a.deps.Memory.AddUser(text)

	result, err := a.deps.Pipeline.Run(ctx, a.messages())
	if err != nil {
		a.logger.Error("pipeline failed", "turn", turnID, "error", err)
		a.setState(Idle)
		a.pause(ctx, a.cfg.ErrorPause)
		return
	}

	a.finishTurn(ctx, turnID, text, result)
	a.deps.Metrics.RecordTurn(time.Since(start).Seconds())
	a.setState(Idle)
}

// finishTurn records the outcome of a pipeline run: hand off to the
// router, or write memory and the command log for a plain reply.
func (a *Agent) finishTurn(ctx context.Context, turnID, transcript string, result *voice.Result) {
	if result.Route != nil {
		a.publish(hub.Event{
			Type:    hub.EventRoute,
			TurnID:  turnID,
			AgentID: result.Route.AgentID,
			Text:    result.Route.Query,
		})
		if a.deps.Router != nil {
			a.deps.Router.Handle(ctx, transcript, result.Route)
		} else {
			a.logger.Warn("routing requested but no router configured",
				"agent", result.Route.AgentID)
		}
		return
	}

	switch {
	case result.Errored:
		a.publish(hub.Event{Type: hub.EventError, TurnID: turnID})
		a.appendLog(transcript, "", "error", result.Text)
	case result.Interrupted:
		a.publish(hub.Event{Type: hub.EventInterrupt, TurnID: turnID})
		a.appendLog(transcript, "", "interrupted", result.Text)
	default:
		a.deps.Memory.AddAssistant(result.Text)
		a.publish(hub.Event{Type: hub.EventReply, TurnID: turnID, Text: result.Text})
		a.appendLog(transcript, "", "chat", result.Text)
	}
}

func (a *Agent) handleCommand(ctx context.Context, turnID, transcript string, kind command.Kind) {
	a.logger.Info("voice command", "turn", turnID, "command", kind.String())

	var spoken string
	switch kind {
	case command.Clear:
		a.deps.Memory.Clear()
		spoken = "Starting fresh. What's on your mind?"
	case command.ForgetLast:
		a.deps.Memory.ForgetLast()
		spoken = "Done. That exchange is forgotten."
	case command.RepeatUser:
		if last, ok := a.deps.Memory.LastUser(); ok {
			spoken = "You asked: " + last
		} else {
			spoken = "I don't have any previous questions."
		}
	case command.RepeatAssistant:
		if last, ok := a.deps.Memory.LastAssistant(); ok {
			spoken = last
		} else {
			spoken = "I haven't said anything yet."
		}
	}

	a.speak(ctx, spoken)
	a.appendLog(transcript, "", "command:"+kind.String(), spoken)
}

// messages projects conversation memory into the chat request shape.
func (a *Agent) messages() []inference.Message {
	turns := a.deps.Memory.Messages()
	out := make([]inference.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, inference.Message{
			Role:    inference.Role(t.Role),
			Content: t.Content,
		})
	}
	return out
}

// speak plays a short prompt through the direct synthesis path.
func (a *Agent) speak(ctx context.Context, text string) {
	if a.deps.Speech == nil || text == "" {
		a.logger.Info("prompt", "text", text)
		return
	}
	if err := tts.Speak(ctx, a.deps.Speech, a.deps.Sink, text); err != nil {
		a.logger.Warn("prompt playback failed", "error", err)
	}
}

// cue plays an activation or deactivation tone.
func (a *Agent) cue(ctx context.Context, frequency float64, duration time.Duration) {
	if frequency <= 0 || duration <= 0 {
		return
	}
	rate := a.cfg.SampleRate
	frame := audioio.Frame{
		Samples:    audioio.Tone(frequency, duration.Seconds(), rate),
		SampleRate: rate,
		Channels:   1,
	}
	if err := a.deps.Sink.Write(ctx, frame); err != nil {
		a.logger.Debug("cue playback failed", "error", err)
		return
	}
	if err := a.deps.Sink.Flush(ctx); err != nil {
		a.logger.Debug("cue flush failed", "error", err)
	}
}

func (a *Agent) publish(ev hub.Event) {
	if a.deps.Hub != nil {
		a.deps.Hub.Publish(ev)
	}
}

func (a *Agent) appendLog(transcript, agentID, mode, response string) {
	if a.deps.CmdLog == nil {
		return
	}
	if err := a.deps.CmdLog.Append(transcript, agentID, mode, response); err != nil {
		a.logger.Warn("command log write failed", "error", err)
	}
}

func (a *Agent) pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Package voice implements the streaming response pipeline: three
// concurrent stages (fetch+segment, synthesize, play) connected by two
// ordered channels and one shared cancellation flag.
//
// Stage A streams tokens from the provider chain, watches the earliest
// part of the reply for a routing marker, and emits completed
// sentences. Stage B synthesizes each sentence in order. Stage C plays
// each audio buffer to completion, preserving audible ordering.
// An interrupt sets the shared flag, drains both channels, and injects
// end-of-stream markers so stages blocked on empty channels unwind.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openclaw/voicehub/pkg/audioio"
	"github.com/openclaw/voicehub/pkg/inference"
	"github.com/openclaw/voicehub/pkg/segment"
	"github.com/openclaw/voicehub/pkg/tts"
)

// DefaultApology is spoken when every provider in the chain has failed.
const DefaultApology = "I can't reach any of my thinking engines right now."

const channelDepth = 64

// Config holds pipeline tuning parameters.
type Config struct {
	// RouteWindow is the reply-prefix length inspected for a routing
	// marker. Default: DefaultRouteWindow.
	RouteWindow int

	// RouteGrace extends the window. Default: DefaultRouteGrace.
	RouteGrace int

	// Apology is spoken on provider exhaustion. Default: DefaultApology.
	Apology string

	// RecvTimeout bounds every blocking channel receive so the
	// cancellation flag is observed promptly. Default: 1s.
	RecvTimeout time.Duration

	// MaxTokens and Temperature are passed through to the provider.
	MaxTokens   int
	Temperature float64
}

func (c *Config) setDefaults() {
	if c.RouteWindow <= 0 {
		c.RouteWindow = DefaultRouteWindow
	}
	if c.RouteGrace < 0 {
		c.RouteGrace = DefaultRouteGrace
	}
	if c.RouteGrace == 0 {
		c.RouteGrace = DefaultRouteGrace
	}
	if c.Apology == "" {
		c.Apology = DefaultApology
	}
	if c.RecvTimeout <= 0 {
		c.RecvTimeout = time.Second
	}
}

// Hooks are optional callbacks for observability. Nil hooks are skipped.
type Hooks struct {
	// OnExhaustion fires when every provider failed for a run.
	OnExhaustion func()

	// OnSynthesisFailure fires when one sentence could not be
	// synthesized and was skipped.
	OnSynthesisFailure func()

	// OnInterrupt fires the first time a run is interrupted.
	OnInterrupt func()
}

// Result summarizes a completed or interrupted run.
type Result struct {
	// Text is the full accumulated reply.
	Text string

	// Route is set when the reply carried a routing marker.
	Route *Route

	// Errored marks a run that exhausted the provider chain. Errored
	// results must not be written to conversation memory.
	Errored bool

	// Interrupted marks a run cut short by the user.
	Interrupted bool
}

// Pipeline runs the three-stage streaming response flow. At most one
// run is active at a time; Interrupt targets the active run and is
// safe to call at any moment from any goroutine.
type Pipeline struct {
	chain  *inference.Chain
	engine tts.Engine
	sink   audioio.Sink
	cfg    Config
	hooks  Hooks
	logger *slog.Logger

	mu      sync.Mutex
	current *run
}

// NewPipeline creates a pipeline over the given chain, synthesis
// engine, and playback sink.
func NewPipeline(chain *inference.Chain, engine tts.Engine, sink audioio.Sink, cfg Config, hooks Hooks, logger *slog.Logger) *Pipeline {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chain:  chain,
		engine: engine,
		sink:   sink,
		cfg:    cfg,
		hooks:  hooks,
		logger: logger.With("component", "voice.pipeline"),
	}
}

// Run executes one full turn: stream the reply for messages, speak it
// sentence by sentence, and return the accumulated result. Run blocks
// until playback finishes or the run is interrupted.
func (p *Pipeline) Run(ctx context.Context, messages []inference.Message) (*Result, error) {
	r := &run{
		pipeline:  p,
		sentences: make(chan sentenceUnit, channelDepth),
		audio:     make(chan audioUnit, channelDepth),
	}

	p.mu.Lock()
	p.current = r
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.current == r {
			p.current = nil
		}
		p.mu.Unlock()
	}()

	return r.execute(ctx, messages)
}

// Interrupt cancels the active run, if any: the shared flag is set,
// both channels are drained, end-of-stream markers are injected, and
// buffered playback is discarded. Idempotent and safe to call
// concurrently with an active run.
func (p *Pipeline) Interrupt() {
	p.mu.Lock()
	r := p.current
	p.mu.Unlock()

	if r != nil {
		r.interrupt()
	}
}

// run is the ephemeral state of one pipeline execution.
type run struct {
	pipeline *Pipeline

	cancelled atomic.Bool
	sentences chan sentenceUnit
	audio     chan audioUnit

	respMu   sync.Mutex
	response strings.Builder
	route    *Route
	errored  bool
}

func (r *run) execute(ctx context.Context, messages []inference.Message) (*Result, error) {
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		r.fetchAndSegment(ctx, messages)
	}()
	go func() {
		defer wg.Done()
		r.synthesize(ctx)
	}()
	go func() {
		defer wg.Done()
		r.play(ctx)
	}()

	wg.Wait()

	r.respMu.Lock()
	defer r.respMu.Unlock()
	return &Result{
		Text:        strings.TrimSpace(r.response.String()),
		Route:       r.route,
		Errored:     r.errored,
		Interrupted: r.cancelled.Load(),
	}, nil
}

// fetchAndSegment is Stage A: stream tokens, watch for a routing
// marker within the window, split completed sentences off the growing
// buffer, and emit them in generation order. A stream that breaks
// after opening counts as that provider's failure: the chain resumes
// at the next provider with a fresh request. Sentences already spoken
// from the broken attempt stay spoken; its trailing fragment is
// dropped.
func (r *run) fetchAndSegment(ctx context.Context, messages []inference.Message) {
	cfg := r.pipeline.cfg

	defer r.sendSentence(sentenceUnit{kind: kindEOS})

	req := &inference.ChatRequest{
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	next := 0
	for !r.cancelled.Load() {
		stream, provider, idx, err := r.pipeline.chain.StreamFrom(ctx, req, next)
		if err != nil {
			r.exhaust(err)
			return
		}

		r.pipeline.logger.Debug("reply stream open", "provider", provider)

		finished, streamErr := r.consume(stream, provider)
		stream.Close()
		if finished || r.cancelled.Load() || ctx.Err() != nil {
			return
		}

		r.pipeline.chain.Failover(provider, streamErr)
		next = idx + 1
		if next >= len(r.pipeline.chain.Providers()) {
			r.exhaust(streamErr)
			return
		}
	}
}

// consume pulls tokens from one open stream until it ends or the run
// is cancelled. It reports whether the reply finished (clean end or
// route detection); a broken stream returns false with the receive
// error so the caller can advance the chain.
func (r *run) consume(stream inference.Stream, provider string) (bool, error) {
	logger := r.pipeline.logger
	cfg := r.pipeline.cfg

	var buffer string
	accumulated := 0
	routeActive := true
	routeLimit := cfg.RouteWindow + cfg.RouteGrace

	for !r.cancelled.Load() {
		chunk, err := stream.Recv()
		if err != nil {
			logger.Warn("reply stream broke mid-run", "provider", provider, "error", err)
			return false, err
		}

		if chunk.Delta != "" {
			buffer += chunk.Delta
			accumulated += len(chunk.Delta)

			if routeActive {
				if route, ok := ParseRoute(buffer); ok {
					logger.Info("routing marker detected", "agent", route.AgentID)
					r.respMu.Lock()
					r.route = route
					r.response.Reset()
					fmt.Fprintf(&r.response, "[ROUTE:%s] %s", route.AgentID, route.Query)
					r.respMu.Unlock()
					r.sendSentence(sentenceUnit{kind: kindRoute, route: route})
					return true, nil
				}
				if accumulated > routeLimit {
					// Window exceeded without a marker: a late marker
					// is spoken as ordinary text.
					routeActive = false
				}
			}

			parts := segment.Split(buffer)
			if len(parts) > 1 {
				for _, s := range parts[:len(parts)-1] {
					r.appendResponse(s)
					r.sendSentence(sentenceUnit{kind: kindText, text: s})
				}
				buffer = parts[len(parts)-1]
			}
		}

		if chunk.Done {
			break
		}
	}

	if rest := strings.TrimSpace(buffer); rest != "" && !r.cancelled.Load() {
		r.appendResponse(rest)
		r.sendSentence(sentenceUnit{kind: kindText, text: rest})
	}
	return true, nil
}

// exhaust marks the run errored and emits the fixed apology. Errored
// runs never reach conversation memory.
func (r *run) exhaust(err error) {
	r.pipeline.logger.Error("all providers failed", "error", err)
	r.respMu.Lock()
	r.errored = true
	r.respMu.Unlock()
	if r.pipeline.hooks.OnExhaustion != nil {
		r.pipeline.hooks.OnExhaustion()
	}
	r.sendSentence(sentenceUnit{kind: kindText, text: r.pipeline.cfg.Apology})
}

// appendResponse accumulates emitted sentence text. Only text that was
// handed to synthesis counts toward the final result.
func (r *run) appendResponse(s string) {
	r.respMu.Lock()
	if r.response.Len() > 0 {
		r.response.WriteString(" ")
	}
	r.response.WriteString(s)
	r.respMu.Unlock()
}

// synthesize is Stage B: consume sentences strictly in order, turn
// each into audio, and forward markers unchanged. A failed sentence is
// skipped, never retried.
func (r *run) synthesize(ctx context.Context) {
	logger := r.pipeline.logger

	for {
		unit := r.recvSentence()
		switch unit.kind {
		case kindEOS:
			r.sendAudio(audioUnit{kind: kindEOS})
			return
		case kindRoute:
			r.sendAudio(audioUnit{kind: kindRoute, route: unit.route})
			return
		}

		if r.cancelled.Load() {
			continue // keep draining until the EOS marker arrives
		}

		text := segment.CleanForSpeech(unit.text)
		if text == "" {
			continue
		}

		result, err := r.pipeline.engine.Synthesize(ctx, text)
		if err != nil {
			logger.Warn("sentence synthesis failed, skipping",
				"chars", len(text),
				"error", err,
			)
			if r.pipeline.hooks.OnSynthesisFailure != nil {
				r.pipeline.hooks.OnSynthesisFailure()
			}
			continue
		}

		r.sendAudio(audioUnit{kind: kindPCM, audio: result})
	}
}

// play is Stage C: play each audio buffer to completion before
// dequeuing the next, guaranteeing audible ordering.
func (r *run) play(ctx context.Context) {
	logger := r.pipeline.logger
	sink := r.pipeline.sink

	for {
		unit := r.recvAudio()
		switch unit.kind {
		case kindEOS, kindRoute:
			return
		}

		// Nothing buffered or in flight after the flag is set is played.
		if r.cancelled.Load() {
			continue
		}

		pcm := unit.audio.PCM
		rate := unit.audio.SampleRate
		if target := sink.Config().SampleRate; target != 0 && target != rate {
			pcm = audioio.Resample(pcm, rate, target)
			rate = target
		}

		frame := audioio.Frame{Samples: pcm, SampleRate: rate, Channels: 1}
		if err := sink.Write(ctx, frame); err != nil {
			logger.Warn("playback write failed", "error", err)
			continue
		}
		if err := sink.Flush(ctx); err != nil {
			logger.Warn("playback flush failed", "error", err)
		}
	}
}

// interrupt sets the shared flag, drains both channels, injects
// end-of-stream markers to unblock waiting stages, and discards any
// buffered playback.
func (r *run) interrupt() {
	first := r.cancelled.CompareAndSwap(false, true)
	if first && r.pipeline.hooks.OnInterrupt != nil {
		r.pipeline.hooks.OnInterrupt()
	}

	drainSentences(r.sentences)
	drainAudio(r.audio)

	// Non-blocking injection: if a marker is already queued, another
	// is unnecessary.
	select {
	case r.sentences <- sentenceUnit{kind: kindEOS}:
	default:
	}
	select {
	case r.audio <- audioUnit{kind: kindEOS}:
	default:
	}

	if err := r.pipeline.sink.Clear(); err != nil {
		r.pipeline.logger.Warn("failed to clear playback", "error", err)
	}
}

// sendSentence delivers a unit to the sentences channel, giving up
// only when the run is cancelled.
func (r *run) sendSentence(unit sentenceUnit) {
	r.send(func() bool {
		select {
		case r.sentences <- unit:
			return true
		case <-time.After(r.pipeline.cfg.RecvTimeout):
			return false
		}
	}, unit.kind)
}

// sendAudio delivers a unit to the audio channel.
func (r *run) sendAudio(unit audioUnit) {
	r.send(func() bool {
		select {
		case r.audio <- unit:
			return true
		case <-time.After(r.pipeline.cfg.RecvTimeout):
			return false
		}
	}, unit.kind)
}

func (r *run) send(attempt func() bool, kind unitKind) {
	for {
		// Markers are still delivered after cancellation so the
		// downstream stages unwind.
		if r.cancelled.Load() && kind != kindEOS && kind != kindRoute {
			return
		}
		if attempt() {
			return
		}
	}
}

// recvSentence blocks for the next sentence unit, polling the
// cancellation flag at the configured timeout.
func (r *run) recvSentence() sentenceUnit {
	for {
		select {
		case unit := <-r.sentences:
			return unit
		case <-time.After(r.pipeline.cfg.RecvTimeout):
			if r.cancelled.Load() {
				return sentenceUnit{kind: kindEOS}
			}
		}
	}
}

// recvAudio blocks for the next audio unit, polling the cancellation
// flag at the configured timeout.
func (r *run) recvAudio() audioUnit {
	for {
		select {
		case unit := <-r.audio:
			return unit
		case <-time.After(r.pipeline.cfg.RecvTimeout):
			if r.cancelled.Load() {
				return audioUnit{kind: kindEOS}
			}
		}
	}
}

func drainSentences(ch chan sentenceUnit) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func drainAudio(ch chan audioUnit) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

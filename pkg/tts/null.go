package tts

import "context"

// Null is an Engine that produces no audio. It backs the daemon's
// no-TTS mode: the pipeline still segments, accumulates, and orders
// the reply, but nothing is audible.
type Null struct{}

// NewNull creates a Null engine.
func NewNull() *Null { return &Null{} }

// Name returns the engine identifier.
func (n *Null) Name() string { return "null" }

// Synthesize returns an empty buffer for any text.
func (n *Null) Synthesize(_ context.Context, text string) (*AudioResult, error) {
	return &AudioResult{SampleRate: 22050, CharCount: len(text)}, nil
}

// Health always succeeds.
func (n *Null) Health(context.Context) error { return nil }

// Close is a no-op.
func (n *Null) Close() error { return nil }

var _ Engine = (*Null)(nil)

package tts

import (
	"context"
	"sync"
	"time"
)

// Mock implements Engine for testing. It produces a buffer whose
// length is proportional to the text, so ordering and duration logic
// can be exercised without a real synthesizer.
type Mock struct {
	// NameValue is the engine name reported by Name.
	NameValue string

	// SampleRate of the fake audio. Default: 22050.
	SampleRate int

	// Err, when set, makes every Synthesize call fail.
	Err error

	// FailFor makes Synthesize fail only for these exact texts.
	FailFor map[string]error

	// Delay simulates synthesis time per call.
	Delay time.Duration

	mu    sync.Mutex
	calls []string
}

// NewMockEngine creates a mock engine.
func NewMockEngine() *Mock {
	return &Mock{NameValue: "mock", SampleRate: 22050}
}

// Name returns the mock's name.
func (m *Mock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Synthesize records the text and returns fake PCM.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	if m.Err != nil {
		return nil, WrapError(m.Name(), m.Err)
	}
	if err, ok := m.FailFor[text]; ok {
		return nil, WrapError(m.Name(), err)
	}

	// 100 samples per character keeps durations text-proportional.
	pcm := make([]int16, len(text)*100)
	for i := range pcm {
		pcm[i] = int16(i % 1000)
	}

	rate := m.SampleRate
	if rate == 0 {
		rate = 22050
	}
	return &AudioResult{PCM: pcm, SampleRate: rate, CharCount: len(text)}, nil
}

// Health reports the configured error state.
func (m *Mock) Health(ctx context.Context) error { return m.Err }

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Calls returns every text synthesized so far, in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Verify Mock implements Engine at compile time.
var _ Engine = (*Mock)(nil)

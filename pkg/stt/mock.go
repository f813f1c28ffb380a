package stt

import (
	"context"
	"sync"
)

// Mock implements Engine for testing. It returns scripted transcripts
// in order, or a fixed text.
type Mock struct {
	// Text is returned for every call when Scripted is empty.
	Text string

	// Scripted transcripts are returned one per call, in order, then
	// ErrEmptyTranscript.
	Scripted []string

	// Err, when set, makes every call fail.
	Err error

	mu    sync.Mutex
	calls int
}

// NewMock creates a mock engine that always returns text.
func NewMock(text string) *Mock {
	return &Mock{Text: text}
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Transcribe returns the next scripted transcript.
func (m *Mock) Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Scripted) > 0 {
		if m.calls > len(m.Scripted) {
			return "", ErrEmptyTranscript
		}
		return m.Scripted[m.calls-1], nil
	}
	if m.Text == "" {
		return "", ErrEmptyTranscript
	}
	return m.Text, nil
}

// Calls returns how many times Transcribe was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Health is always healthy unless Err is set.
func (m *Mock) Health(ctx context.Context) error { return m.Err }

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Verify Mock implements Engine at compile time.
var _ Engine = (*Mock)(nil)

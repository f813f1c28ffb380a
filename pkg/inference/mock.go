package inference

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
type Mock struct {
	// NameValue is the provider name reported by Name.
	NameValue string

	// ChatFunc is called when Chat is invoked.
	ChatFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamFunc is called when Stream is invoked.
	StreamFunc func(ctx context.Context, req *ChatRequest) (Stream, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a mock provider that streams the given text as a
// sequence of token-sized chunks.
func NewMock(name string, chunks ...string) *Mock {
	return &Mock{
		NameValue: name,
		StreamFunc: func(ctx context.Context, req *ChatRequest) (Stream, error) {
			return NewMockStream(chunks...), nil
		},
		ChatFunc: func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			var content string
			for _, c := range chunks {
				content += c
			}
			return &ChatResponse{
				Message:      NewAssistantMessage(content),
				FinishReason: "stop",
			}, nil
		},
	}
}

// WithError returns a mock whose every method fails with the given error.
func WithError(name string, err error) *Mock {
	return &Mock{
		NameValue: name,
		ChatFunc: func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			return nil, err
		},
		StreamFunc: func(ctx context.Context, req *ChatRequest) (Stream, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Name returns the mock's name.
func (m *Mock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Chat calls ChatFunc and records the call.
func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.record("Chat")
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return nil, WrapError(m.Name(), ErrProviderUnavailable)
}

// Stream calls StreamFunc and records the call.
func (m *Mock) Stream(ctx context.Context, req *ChatRequest) (Stream, error) {
	m.record("Stream")
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return nil, WrapError(m.Name(), ErrProviderUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// MockStream replays a scripted sequence of deltas, then reports Done.
type MockStream struct {
	mu      sync.Mutex
	chunks  []string
	failErr error
	next    int
	closed  bool
}

// NewMockStream creates a stream that yields each chunk in order.
func NewMockStream(chunks ...string) *MockStream {
	return &MockStream{chunks: chunks}
}

// NewBrokenMockStream creates a stream that yields each chunk in
// order and then fails with err instead of reporting a clean end.
func NewBrokenMockStream(err error, chunks ...string) *MockStream {
	return &MockStream{chunks: chunks, failErr: err}
}

// Recv returns the next scripted chunk.
func (s *MockStream) Recv() (*StreamChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.next >= len(s.chunks) {
		if s.failErr != nil {
			return nil, s.failErr
		}
		return &StreamChunk{Done: true, FinishReason: "stop"}, nil
	}

	chunk := s.chunks[s.next]
	s.next++
	return &StreamChunk{Delta: chunk}, nil
}

// Close stops the stream.
func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify mocks implement the interfaces at compile time.
var (
	_ Provider = (*Mock)(nil)
	_ Stream   = (*MockStream)(nil)
)

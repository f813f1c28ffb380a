package audioio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// MockSource is a mock audio source for testing.
// It generates synthetic audio (silence or a sine wave), or replays a
// scripted sequence of frames when one is provided.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	scripted []Frame
	next     int

	// Synthetic audio generation
	phase     float64
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0

	// Realtime, when true, paces Read at the frame duration.
	realtime bool
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithScriptedFrames configures the mock to return the given frames in
// order, then io.EOF. Used to drive voice-activity capture tests.
func WithScriptedFrames(frames []Frame) MockSourceOption {
	return func(m *MockSource) {
		m.scripted = frames
	}
}

// WithRealtime makes Read pace itself at the configured frame duration.
func WithRealtime() MockSourceOption {
	return func(m *MockSource) {
		m.realtime = true
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		amplitude: 0.5,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start begins audio generation.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	m.running = true
	return nil
}

// Read returns the next frame: the next scripted frame when scripted,
// otherwise a generated frame.
func (m *MockSource) Read(ctx context.Context) (Frame, error) {
	m.mu.Lock()
	if !m.running || m.closed {
		m.mu.Unlock()
		return Frame{}, io.EOF
	}

	var f Frame
	if m.scripted != nil {
		if m.next >= len(m.scripted) {
			m.mu.Unlock()
			return Frame{}, io.EOF
		}
		f = m.scripted[m.next]
		m.next++
	} else {
		f = m.generateFrame()
	}
	realtime := m.realtime
	m.mu.Unlock()

	if realtime {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-time.After(m.cfg.FrameDuration):
		}
	} else if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	return f, nil
}

func (m *MockSource) generateFrame() Frame {
	size := m.cfg.FrameSize()
	samples := make([]int16, size*m.cfg.Channels)

	if m.frequency > 0 {
		for i := 0; i < size; i++ {
			v := m.amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.SampleRate))
			sample := int16(v * 32767)
			for ch := 0; ch < m.cfg.Channels; ch++ {
				samples[i*m.cfg.Channels+ch] = sample
			}
			m.phase++
			if m.phase >= float64(m.cfg.SampleRate) {
				m.phase = 0
			}
		}
	}
	// else: samples stay zero (silence)

	return Frame{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
	}
}

// Stop halts audio generation.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// Config returns the source configuration.
func (m *MockSource) Config() Config { return m.cfg }

// Name returns "mock".
func (m *MockSource) Name() string { return string(BackendMock) }

// Close releases the source.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.closed = true
	return nil
}

// MockSink is a mock audio sink that records every frame written to it.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	written []Frame
	cleared int
	closed  bool

	// PlayDelay, when set, makes each Write block for that duration to
	// simulate real playback time.
	PlayDelay time.Duration
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{cfg: cfg, logger: logger}
}

// Start is a no-op for the mock sink.
func (m *MockSink) Start(ctx context.Context) error { return nil }

// Write records the frame, optionally simulating playback time.
func (m *MockSink) Write(ctx context.Context, frame Frame) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	delay := m.PlayDelay
	m.written = append(m.written, frame)
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}

// Flush is a no-op for the mock sink.
func (m *MockSink) Flush(ctx context.Context) error { return nil }

// Clear counts interruptions.
func (m *MockSink) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	return nil
}

// Stop is a no-op for the mock sink.
func (m *MockSink) Stop() error { return nil }

// Config returns the sink configuration.
func (m *MockSink) Config() Config { return m.cfg }

// Name returns "mock".
func (m *MockSink) Name() string { return string(BackendMock) }

// Close releases the sink.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Written returns a copy of all frames written so far.
func (m *MockSink) Written() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, len(m.written))
	copy(out, m.written)
	return out
}

// ClearCount returns how many times Clear was called.
func (m *MockSink) ClearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}

// Compile-time interface checks.
var (
	_ Source = (*MockSource)(nil)
	_ Sink   = (*MockSink)(nil)
)

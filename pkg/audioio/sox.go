package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// soxSource captures microphone audio via the sox "rec" subprocess,
// reading raw signed 16-bit little-endian samples from its stdout.
type soxSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	running bool
	closed  bool
}

func newSoxSource(cfg Config, logger *slog.Logger) *soxSource {
	return &soxSource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.sox.source"),
	}
}

func (s *soxSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	args := []string{
		"-q",
		"-r", strconv.Itoa(s.cfg.SampleRate),
		"-c", strconv.Itoa(s.cfg.Channels),
		"-e", "signed", "-b", "16",
		"-t", "raw", "-",
	}
	cmd := exec.CommandContext(ctx, "rec", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start rec: %w", err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.running = true
	return nil
}

func (s *soxSource) Read(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	stdout := s.stdout
	running := s.running
	s.mu.Unlock()

	if !running || stdout == nil {
		return Frame{}, io.EOF
	}

	buf := make([]byte, s.cfg.FrameBytes())
	if _, err := io.ReadFull(stdout, buf); err != nil {
		return Frame{}, io.EOF
	}

	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	var f Frame
	f.FromBytes(buf, s.cfg.SampleRate, s.cfg.Channels)
	return f, nil
}

func (s *soxSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *soxSource) stopLocked() error {
	if !s.running {
		return nil
	}
	s.running = false
	if s.stdout != nil {
		s.stdout.Close()
		s.stdout = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.cmd = nil
	return nil
}

func (s *soxSource) Config() Config { return s.cfg }
func (s *soxSource) Name() string   { return string(BackendSox) }

func (s *soxSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.stopLocked()
}

// soxSink plays audio via the sox "play" subprocess. Each Write streams
// raw PCM into the running process; Flush closes stdin and waits for
// playback to finish, which is what makes playback blocking and
// non-overlapping.
type soxSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	playing bool
	closed  bool
}

func newSoxSink(cfg Config, logger *slog.Logger) *soxSink {
	return &soxSink{
		cfg:    cfg,
		logger: logger.With("component", "audioio.sox.sink"),
	}
}

func (s *soxSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	return nil
}

func (s *soxSink) Write(ctx context.Context, frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}

	rate := frame.SampleRate
	if rate == 0 {
		rate = s.cfg.SampleRate
	}

	if !s.playing {
		if err := s.startPlayLocked(rate); err != nil {
			return err
		}
	}

	if s.stdin == nil {
		return io.ErrClosedPipe
	}
	if _, err := s.stdin.Write(frame.Bytes()); err != nil {
		s.stopPlayLocked()
		return fmt.Errorf("write to play: %w", err)
	}
	return nil
}

func (s *soxSink) startPlayLocked(rate int) error {
	args := []string{
		"-q",
		"-r", strconv.Itoa(rate),
		"-c", strconv.Itoa(s.cfg.Channels),
		"-e", "signed", "-b", "16",
		"-t", "raw", "-",
	}
	cmd := exec.Command("play", args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start play: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.playing = true
	return nil
}

// Flush closes the player's stdin and waits for it to drain its buffer.
func (s *soxSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return nil
	}

	if s.stdin != nil {
		s.stdin.Close()
		s.stdin = nil
	}

	done := make(chan error, 1)
	cmd := s.cmd
	go func() {
		if cmd != nil {
			done <- cmd.Wait()
		} else {
			done <- nil
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if cmd != nil && cmd.Process != nil {
			cmd.Process.Kill()
		}
	}

	s.playing = false
	s.cmd = nil
	return nil
}

func (s *soxSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopPlayLocked()
	return nil
}

func (s *soxSink) stopPlayLocked() {
	if s.stdin != nil {
		s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.cmd = nil
	s.playing = false
}

func (s *soxSink) Stop() error {
	return s.Clear()
}

func (s *soxSink) Config() Config { return s.cfg }
func (s *soxSink) Name() string   { return string(BackendSox) }

func (s *soxSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopPlayLocked()
	s.closed = true
	return nil
}

// Compile-time interface checks.
var (
	_ Source = (*soxSource)(nil)
	_ Sink   = (*soxSink)(nil)
)

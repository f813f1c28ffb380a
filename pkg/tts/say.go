package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/openclaw/voicehub/pkg/audioio"
)

// Say is the OS-level synthesizer of last resort: the macOS say tool,
// or espeak on Linux. Quality is poor, but it needs no model files and
// no network.
type Say struct {
	config *Config
	binary string
}

// NewSay creates the OS synthesizer, probing for say then espeak.
func NewSay(opts ...Option) (*Say, error) {
	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	cfg.Apply(opts...)

	binary := cfg.Binary
	if binary == "" {
		for _, candidate := range []string{"say", "espeak"} {
			if _, err := exec.LookPath(candidate); err == nil {
				binary = candidate
				break
			}
		}
	}
	if binary == "" {
		return nil, WrapError("say", ErrEngineUnavailable)
	}

	return &Say{config: cfg, binary: binary}, nil
}

// Name returns the underlying binary name.
func (s *Say) Name() string { return s.binary }

// Synthesize renders text to PCM via the OS tool.
func (s *Say) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, WrapError(s.Name(), ErrEmptyText)
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var wav []byte
	var err error
	switch filepath.Base(s.binary) {
	case "say":
		wav, err = s.runSay(ctx, text)
	default:
		wav, err = s.runEspeak(ctx, text)
	}
	if err != nil {
		return nil, err
	}

	pcm, rate, err := decodeWAV(wav)
	if err != nil {
		return nil, WrapError(s.Name(), err)
	}

	return &AudioResult{
		PCM:        pcm,
		SampleRate: rate,
		CharCount:  len(text),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// runSay renders to a temp file; say has no stdout mode.
func (s *Say) runSay(ctx context.Context, text string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "voicehub-say-*.wav")
	if err != nil {
		return nil, WrapError(s.Name(), err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	args := []string{
		"-o", tmp.Name(),
		"--data-format", fmt.Sprintf("LEI16@%d", s.config.SampleRate),
	}
	if s.config.Voice != "" {
		args = append(args, "-v", s.config.Voice)
	}
	args = append(args, text)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, WrapError(s.Name(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	return os.ReadFile(tmp.Name())
}

// runEspeak streams WAV to stdout.
func (s *Say) runEspeak(ctx context.Context, text string) ([]byte, error) {
	args := []string{"--stdout"}
	if s.config.Voice != "" {
		args = append(args, "-v", s.config.Voice)
	}
	args = append(args, text)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, WrapError(s.Name(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	return stdout.Bytes(), nil
}

// Health checks that the binary is still on PATH.
func (s *Say) Health(ctx context.Context) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return WrapError(s.Name(), err)
	}
	return nil
}

// Close is a no-op: the tool runs per-call.
func (s *Say) Close() error { return nil }

// decodeWAV extracts PCM16 samples and the sample rate from a RIFF
// container. Only uncompressed PCM16 is supported, which is what both
// say and espeak emit.
func decodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var sampleRate int
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body // espeak writes a placeholder size when streaming
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("truncated fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			bits := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if format != 1 || bits != 16 {
				return nil, 0, fmt.Errorf("unsupported format %d/%d-bit", format, bits)
			}
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
		case "data":
			if sampleRate == 0 {
				return nil, 0, fmt.Errorf("data chunk before fmt chunk")
			}
			return audioio.BytesToSamples(data[body : body+size]), sampleRate, nil
		}

		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	return nil, 0, fmt.Errorf("no data chunk found")
}

// Verify Say implements Engine at compile time.
var _ Engine = (*Say)(nil)

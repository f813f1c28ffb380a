package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/openclaw/voicehub/pkg/audioio"
)

// Piper synthesizes speech with a local piper subprocess.
// Piper writes raw PCM16 at the voice model's native rate (22050 Hz
// for most published voices) when invoked with --output-raw.
type Piper struct {
	config *Config
}

// NewPiper creates a Piper engine.
func NewPiper(opts ...Option) (*Piper, error) {
	cfg := DefaultConfig()
	cfg.Binary = "piper"
	cfg.Apply(opts...)

	if cfg.Voice == "" {
		return nil, WrapError("piper", fmt.Errorf("voice model path required"))
	}

	return &Piper{config: cfg}, nil
}

// Name returns "piper".
func (p *Piper) Name() string { return "piper" }

// Synthesize runs the piper subprocess for one utterance.
func (p *Piper) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, WrapError(p.Name(), ErrEmptyText)
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.config.Binary,
		"--model", p.config.Voice,
		"--output-raw",
	)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, WrapError(p.Name(), fmt.Errorf("timed out after %v", p.config.Timeout))
		}
		return nil, WrapError(p.Name(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	pcm := audioio.BytesToSamples(stdout.Bytes())
	if len(pcm) == 0 {
		return nil, WrapError(p.Name(), fmt.Errorf("no audio produced"))
	}

	return &AudioResult{
		PCM:        pcm,
		SampleRate: p.config.SampleRate,
		CharCount:  len(text),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// Health checks that the piper binary is on PATH.
func (p *Piper) Health(ctx context.Context) error {
	if _, err := exec.LookPath(p.config.Binary); err != nil {
		return WrapError(p.Name(), err)
	}
	return nil
}

// Close is a no-op: piper runs per-call.
func (p *Piper) Close() error { return nil }

// Verify Piper implements Engine at compile time.
var _ Engine = (*Piper)(nil)

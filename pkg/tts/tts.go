// Package tts provides a unified interface for text-to-speech engines.
//
// The package supports a local Piper subprocess, any HTTP speech
// endpoint with an OpenAI-compatible API, and the operating system's
// built-in synthesizer as a last resort. All engines implement the
// Engine interface, enabling fallback chains without changing caller
// code.
package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/voicehub/pkg/audioio"
)

// Engine defines the text-to-speech interface.
type Engine interface {
	// Synthesize converts text to raw PCM16 audio.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Name identifies the engine in logs.
	Name() string

	// Health checks that the engine is usable.
	Health(ctx context.Context) error

	// Close releases any resources held by the engine.
	Close() error
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	// PCM contains mono PCM16 samples.
	PCM []int16

	// SampleRate in Hz.
	SampleRate int

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis time in milliseconds.
	LatencyMs int64
}

// Duration returns the playback duration of the result.
func (r *AudioResult) Duration() time.Duration {
	if r.SampleRate == 0 {
		return 0
	}
	return time.Duration(float64(len(r.PCM)) / float64(r.SampleRate) * float64(time.Second))
}

// Speak synthesizes text and plays it on the sink to completion,
// resampling if the engine's rate differs from the sink's. It bypasses
// any streaming machinery; use it for short standalone phrases.
func Speak(ctx context.Context, engine Engine, sink audioio.Sink, text string) error {
	result, err := engine.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("tts: synthesize: %w", err)
	}

	pcm := result.PCM
	rate := result.SampleRate
	if target := sink.Config().SampleRate; target != 0 && target != rate {
		pcm = audioio.Resample(pcm, rate, target)
		rate = target
	}

	frame := audioio.Frame{Samples: pcm, SampleRate: rate, Channels: 1}
	if err := sink.Write(ctx, frame); err != nil {
		return fmt.Errorf("tts: play: %w", err)
	}
	return sink.Flush(ctx)
}

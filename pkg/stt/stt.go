// Package stt provides speech-to-text over opaque external engines.
//
// Audio goes in as raw PCM16 samples, transcript text comes out. The
// default implementation posts WAV uploads to a Whisper-compatible
// HTTP endpoint.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyTranscript is returned when the engine produced no usable
// text for the utterance.
var ErrEmptyTranscript = errors.New("stt: empty transcript")

// Engine defines the speech-to-text interface.
type Engine interface {
	// Transcribe converts mono PCM16 samples to text.
	Transcribe(ctx context.Context, samples []int16, sampleRate int) (string, error)

	// Name identifies the engine in logs.
	Name() string

	// Health checks that the engine is usable.
	Health(ctx context.Context) error

	// Close releases any resources held by the engine.
	Close() error
}

// Package vad provides voice activity detection over PCM16 frames.
package vad

import (
	"fmt"

	"github.com/openclaw/voicehub/pkg/audioio"
)

// Detector classifies audio frames as speech or non-speech.
type Detector interface {
	// IsSpeech returns true if the frame contains speech.
	IsSpeech(samples []int16) bool

	// Reset clears any internal state between utterances.
	Reset()

	// Name returns the detector name (e.g., "energy", "hysteresis").
	Name() string
}

// Config holds voice activity detection settings.
type Config struct {
	// Mode selects the detector: "energy" or "hysteresis".
	// Default: "energy".
	Mode string `yaml:"mode" json:"mode"`

	// EnergyThreshold is the raw RMS amplitude above which a frame
	// counts as speech. Default: 500.
	EnergyThreshold float64 `yaml:"energy_threshold" json:"energy_threshold"`

	// SpeechFrames is the number of consecutive speech frames needed
	// to enter the speaking state (hysteresis mode only).
	SpeechFrames int `yaml:"speech_frames" json:"speech_frames"`

	// SilenceFrames is the number of consecutive silence frames needed
	// to leave the speaking state (hysteresis mode only).
	SilenceFrames int `yaml:"silence_frames" json:"silence_frames"`
}

// DefaultConfig returns sensible defaults for 16kHz 30ms frames.
func DefaultConfig() Config {
	return Config{
		Mode:            "energy",
		EnergyThreshold: 500,
		SpeechFrames:    2,
		SilenceFrames:   20,
	}
}

// New creates a detector from the configuration.
func New(cfg Config) (Detector, error) {
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = 500
	}

	switch cfg.Mode {
	case "", "energy":
		return NewEnergy(cfg.EnergyThreshold), nil
	case "hysteresis":
		return NewHysteresis(cfg), nil
	default:
		return nil, fmt.Errorf("unknown vad mode: %q", cfg.Mode)
	}
}

// Energy is a stateless detector that compares each frame's RMS
// amplitude against a fixed threshold.
type Energy struct {
	threshold float64
}

// NewEnergy creates an energy detector with the given raw RMS threshold.
func NewEnergy(threshold float64) *Energy {
	return &Energy{threshold: threshold}
}

// IsSpeech returns true if the frame's RMS exceeds the threshold.
func (e *Energy) IsSpeech(samples []int16) bool {
	return audioio.RMS(samples) > e.threshold
}

// Reset is a no-op: the energy detector is stateless.
func (e *Energy) Reset() {}

// Name returns "energy".
func (e *Energy) Name() string { return "energy" }

// Hysteresis wraps energy detection with enter/exit frame counts to
// avoid flickering between speech and silence on borderline audio.
type Hysteresis struct {
	threshold     float64
	speechFrames  int
	silenceFrames int

	inSpeech     bool
	speechCount  int
	silenceCount int
}

// NewHysteresis creates a hysteresis detector.
func NewHysteresis(cfg Config) *Hysteresis {
	if cfg.SpeechFrames <= 0 {
		cfg.SpeechFrames = 2
	}
	if cfg.SilenceFrames <= 0 {
		cfg.SilenceFrames = 20
	}
	return &Hysteresis{
		threshold:     cfg.EnergyThreshold,
		speechFrames:  cfg.SpeechFrames,
		silenceFrames: cfg.SilenceFrames,
	}
}

// IsSpeech returns true while the detector is in the speaking state.
func (h *Hysteresis) IsSpeech(samples []int16) bool {
	loud := audioio.RMS(samples) > h.threshold

	if h.inSpeech {
		if loud {
			h.silenceCount = 0
		} else {
			h.silenceCount++
			h.speechCount = 0
			if h.silenceCount >= h.silenceFrames {
				h.inSpeech = false
				h.silenceCount = 0
			}
		}
	} else {
		if loud {
			h.speechCount++
			h.silenceCount = 0
			if h.speechCount >= h.speechFrames {
				h.inSpeech = true
				h.speechCount = 0
			}
		} else {
			h.speechCount = 0
		}
	}

	return h.inSpeech
}

// Reset clears the internal state.
func (h *Hysteresis) Reset() {
	h.inSpeech = false
	h.speechCount = 0
	h.silenceCount = 0
}

// Name returns "hysteresis".
func (h *Hysteresis) Name() string { return "hysteresis" }

// Compile-time interface checks.
var (
	_ Detector = (*Energy)(nil)
	_ Detector = (*Hysteresis)(nil)
)

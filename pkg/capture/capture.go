// Package capture records a single utterance from an audio source,
// using voice activity detection to delimit it.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openclaw/voicehub/pkg/audioio"
	"github.com/openclaw/voicehub/pkg/vad"
)

// ErrNoSpeech is returned when the capture window contained no speech,
// or too little of it to be worth transcribing.
var ErrNoSpeech = errors.New("capture: no speech detected")

// Config holds utterance capture settings.
type Config struct {
	// SilenceDuration is how long a trailing silence ends the utterance.
	// Default: 1.5s.
	SilenceDuration time.Duration `yaml:"silence_duration" json:"silence_duration"`

	// MaxDuration caps an utterance regardless of ongoing speech.
	// Default: 60s.
	MaxDuration time.Duration `yaml:"max_duration" json:"max_duration"`

	// MinFrames is the minimum number of accumulated frames below which
	// the utterance is discarded. Default: 5.
	MinFrames int `yaml:"min_frames" json:"min_frames"`
}

// DefaultConfig returns the default capture settings.
func DefaultConfig() Config {
	return Config{
		SilenceDuration: 1500 * time.Millisecond,
		MaxDuration:     60 * time.Second,
		MinFrames:       5,
	}
}

// Recorder reads frames from a source and accumulates one utterance.
type Recorder struct {
	cfg      Config
	source   audioio.Source
	detector vad.Detector
	logger   *slog.Logger
}

// NewRecorder creates a Recorder over the given source and detector.
func NewRecorder(cfg Config, source audioio.Source, detector vad.Detector, logger *slog.Logger) *Recorder {
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = 1500 * time.Millisecond
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 60 * time.Second
	}
	if cfg.MinFrames <= 0 {
		cfg.MinFrames = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{cfg: cfg, source: source, detector: detector, logger: logger}
}

// Record captures one utterance: it waits for the first speech frame,
// then accumulates frames (speech and trailing silence) until either
// the trailing silence exceeds the configured duration or the maximum
// recording length is reached. It returns the raw samples, or
// ErrNoSpeech if no speech was seen or too few frames accumulated.
func (r *Recorder) Record(ctx context.Context) ([]int16, error) {
	frameDur := r.source.Config().FrameDuration
	silenceFrames := int(r.cfg.SilenceDuration / frameDur)
	maxFrames := int(r.cfg.MaxDuration / frameDur)

	r.detector.Reset()

	if err := r.source.Start(ctx); err != nil {
		return nil, fmt.Errorf("capture: start source: %w", err)
	}
	defer r.source.Stop()

	var (
		samples      []int16
		speechSeen   bool
		totalFrames  int
		frameCount   int
		silenceCount int
	)

	for totalFrames < maxFrames {
		frame, err := r.source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("capture: read frame: %w", err)
		}
		totalFrames++

		isSpeech := r.detector.IsSpeech(frame.Samples)

		if !speechSeen {
			if !isSpeech {
				continue
			}
			speechSeen = true
			r.logger.Debug("speech started")
		}

		samples = append(samples, frame.Samples...)
		frameCount++

		if isSpeech {
			silenceCount = 0
		} else {
			silenceCount++
			if silenceCount >= silenceFrames {
				break
			}
		}
	}

	if !speechSeen || frameCount < r.cfg.MinFrames {
		return nil, ErrNoSpeech
	}

	r.logger.Debug("utterance captured",
		"frames", frameCount,
		"duration", time.Duration(frameCount)*frameDur)
	return samples, nil
}

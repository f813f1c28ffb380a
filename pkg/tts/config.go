package tts

import (
	"log/slog"
	"time"
)

// Config holds engine configuration.
type Config struct {
	// Binary is the path to a subprocess-based engine (piper, say).
	Binary string

	// Voice is the engine-specific voice or model identifier.
	Voice string

	// BaseURL is the endpoint for HTTP engines.
	BaseURL string

	// APIKey is the credential for HTTP engines.
	APIKey string

	// SampleRate of the produced audio in Hz.
	SampleRate int

	// Timeout bounds a single synthesis call.
	Timeout time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring engines.
type Option func(*Config)

// WithBinary sets the engine executable path.
func WithBinary(path string) Option {
	return func(c *Config) { c.Binary = path }
}

// WithVoice sets the voice or model identifier.
func WithVoice(voice string) Option {
	return func(c *Config) { c.Voice = voice }
}

// WithBaseURL sets the HTTP endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the HTTP credential.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithTimeout bounds a single synthesis call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SampleRate: 22050,
		Timeout:    10 * time.Second,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

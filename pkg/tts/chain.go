package tts

import (
	"context"
	"log/slog"
)

// Chain implements Engine by trying multiple engines in order.
// The first successful engine wins; if all fail, it returns an
// aggregate error. Used to back a primary engine with the OS
// synthesizer.
type Chain struct {
	engines []Engine
	logger  *slog.Logger
}

// NewChain creates an engine chain that tries engines in order.
// At least one engine is required.
func NewChain(engines ...Engine) (*Chain, error) {
	if len(engines) == 0 {
		return nil, ErrEngineUnavailable
	}
	return &Chain{
		engines: engines,
		logger:  slog.Default().With("component", "tts.chain"),
	}, nil
}

// NewChainWithLogger creates an engine chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, engines ...Engine) (*Chain, error) {
	chain, err := NewChain(engines...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "tts.chain")
	return chain, nil
}

// Name returns "chain".
func (c *Chain) Name() string { return "chain" }

// Synthesize tries each engine until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var errs []error

	for i, e := range c.engines {
		result, err := e.Synthesize(ctx, text)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback engine succeeded",
					"engine", e.Name(),
					"chars", len(text),
				)
			}
			return result, nil
		}

		errs = append(errs, err)
		c.logger.Warn("engine failed, trying next",
			"engine", e.Name(),
			"error", err,
		)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Health returns nil if any engine is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var lastErr error
	for _, e := range c.engines {
		if err := e.Health(ctx); err != nil {
			lastErr = err
		} else {
			return nil
		}
	}
	return WrapError("chain", lastErr)
}

// Close closes all engines.
func (c *Chain) Close() error {
	var lastErr error
	for _, e := range c.engines {
		if err := e.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Verify Chain implements Engine at compile time.
var _ Engine = (*Chain)(nil)

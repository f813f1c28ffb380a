package inference

import (
	"context"
	"log/slog"
)

// Chain tries multiple providers in strict configured order until one
// succeeds. A connectivity failure or an error response both advance
// to the next provider; only chain exhaustion surfaces to the caller.
type Chain struct {
	providers  []Provider
	logger     *slog.Logger
	onFailover func(provider string, err error)
}

// NewChain creates a provider chain.
// At least one provider is required.
func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	return &Chain{
		providers: providers,
		logger:    slog.Default().With("component", "inference.chain"),
	}, nil
}

// NewChainWithLogger creates a provider chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	chain, err := NewChain(providers...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "inference.chain")
	return chain, nil
}

// OnFailover registers a hook invoked each time a provider fails and
// the chain advances. Used for metrics.
func (c *Chain) OnFailover(fn func(provider string, err error)) {
	c.onFailover = fn
}

// Name returns the chain identifier.
func (c *Chain) Name() string { return "chain" }

// Chat tries each provider until one succeeds.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var errs []error

	for i, p := range c.providers {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded", "provider", p.Name())
			}
			return resp, nil
		}

		errs = append(errs, err)
		c.Failover(p.Name(), err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Stream tries each provider until one opens a stream. It returns the
// stream and the name of the provider that served it.
func (c *Chain) Stream(ctx context.Context, req *ChatRequest) (Stream, string, error) {
	stream, name, _, err := c.StreamFrom(ctx, req, 0)
	return stream, name, err
}

// StreamFrom tries providers in order starting at index start. It also
// returns the serving provider's index so a caller recovering from a
// stream that broke after opening can resume at the next provider.
func (c *Chain) StreamFrom(ctx context.Context, req *ChatRequest, start int) (Stream, string, int, error) {
	if start < 0 {
		start = 0
	}

	var errs []error

	for i := start; i < len(c.providers); i++ {
		p := c.providers[i]
		stream, err := p.Stream(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider stream succeeded", "provider", p.Name())
			}
			return stream, p.Name(), i, nil
		}

		errs = append(errs, err)
		c.Failover(p.Name(), err)

		if ctx.Err() != nil {
			return nil, "", 0, ctx.Err()
		}
	}

	if len(errs) == 0 {
		errs = append(errs, ErrProviderUnavailable)
	}
	return nil, "", 0, &ChainError{Errors: errs}
}

// Failover records a provider failure and fires the failover hook.
// Callers use it for failures the chain cannot see itself, such as a
// stream that broke after opening.
func (c *Chain) Failover(name string, err error) {
	kind := "provider_error"
	if IsConnectivity(err) {
		kind = "connectivity"
	}
	c.logger.Warn("provider failed, trying next",
		"provider", name,
		"kind", kind,
		"error", err,
	)
	if c.onFailover != nil {
		c.onFailover(name, err)
	}
}

// Health checks all providers and returns an error if all are unhealthy.
func (c *Chain) Health(ctx context.Context) error {
	var healthy int
	var lastErr error

	for _, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			lastErr = err
		} else {
			healthy++
		}
	}

	if healthy == 0 {
		return WrapError("chain", lastErr)
	}

	c.logger.Debug("health check complete",
		"healthy", healthy,
		"total", len(c.providers),
	)

	return nil
}

// Close closes all providers.
func (c *Chain) Close() error {
	var lastErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Providers returns the list of providers in the chain.
func (c *Chain) Providers() []Provider {
	return c.providers
}

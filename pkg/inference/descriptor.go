package inference

import (
	"fmt"
	"log/slog"
	"os"
)

// Compatibility selects the wire format a provider speaks.
type Compatibility string

const (
	// CompatOpenAI is the OpenAI chat completions API over SSE.
	CompatOpenAI Compatibility = "openai"

	// CompatOllama is the Ollama native chat API over NDJSON.
	CompatOllama Compatibility = "ollama"
)

// Descriptor declaratively describes one provider. Descriptors are
// loaded once from configuration and are immutable.
type Descriptor struct {
	// ID is the stable identifier used in fallback-order lists.
	ID string `json:"id"`

	// Name is the human-readable provider name.
	Name string `json:"name"`

	// Endpoint is the API base URL.
	Endpoint string `json:"endpoint"`

	// APIKeyEnv names the environment variable holding the credential.
	// Empty means the provider needs no credential (local servers).
	APIKeyEnv string `json:"apiKeyEnv"`

	// Model is the model to request from this provider.
	Model string `json:"model"`

	// Compatible selects the wire format. Default: openai.
	Compatible Compatibility `json:"compatible"`
}

// HasCredential reports whether the descriptor's credential is
// available. Descriptors without a configured credential are skipped
// when assembling a chain.
func (d *Descriptor) HasCredential() bool {
	if d.APIKeyEnv == "" {
		return true // local provider, no credential needed
	}
	return os.Getenv(d.APIKeyEnv) != ""
}

// NewFromDescriptor builds a provider from a descriptor. Extra options
// are applied after the descriptor's own settings.
func NewFromDescriptor(d Descriptor, opts ...Option) (Provider, error) {
	if d.Endpoint == "" {
		return nil, fmt.Errorf("inference: descriptor %q has no endpoint", d.ID)
	}

	base := []Option{
		WithBaseURL(d.Endpoint),
		WithModel(d.Model),
	}
	if d.APIKeyEnv != "" {
		base = append(base, WithAPIKey(os.Getenv(d.APIKeyEnv)))
	}
	base = append(base, opts...)

	switch d.Compatible {
	case CompatOllama:
		c, err := NewOllamaClient(base...)
		if err != nil {
			return nil, err
		}
		c.name = d.ID
		return c, nil
	case "", CompatOpenAI:
		c, err := NewClient(base...)
		if err != nil {
			return nil, err
		}
		c.name = d.ID
		return c, nil
	default:
		return nil, fmt.Errorf("inference: descriptor %q has unknown compatibility %q", d.ID, d.Compatible)
	}
}

// NewChainFromDescriptors assembles a fallback chain from descriptors
// in the given order, skipping any whose credential is missing.
func NewChainFromDescriptors(descriptors []Descriptor, logger *slog.Logger, opts ...Option) (*Chain, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var providers []Provider
	for _, d := range descriptors {
		if !d.HasCredential() {
			logger.Debug("skipping provider without credential",
				"provider", d.ID,
				"env", d.APIKeyEnv)
			continue
		}
		p, err := NewFromDescriptor(d, opts...)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	return NewChainWithLogger(logger, providers...)
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/openclaw/voicehub/pkg/inference"
)

// providerFile is the on-disk shape of the provider descriptor file.
// One file serves every agent role; the voiceAgent defaults give this
// daemon its fallback order and preferred models.
type providerFile struct {
	Providers []providerEntry `json:"providers"`
	Defaults  struct {
		VoiceAgent roleDefaults `json:"voiceAgent"`
	} `json:"defaults"`
}

type providerEntry struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Endpoint   string   `json:"endpoint"`
	APIKeyEnv  string   `json:"apiKeyEnv"`
	Models     []string `json:"models"`
	Compatible string   `json:"compatible"`
}

type roleDefaults struct {
	FallbackChain  []string          `json:"fallbackChain"`
	PreferredModel map[string]string `json:"preferredModel"`
}

// LoadProviders reads the provider descriptor file and returns the
// voice role's fallback descriptors in configured order. A missing
// file means no cloud fallbacks and is not an error. Credential
// presence is checked later, when the chain is assembled.
func LoadProviders(path string) ([]inference.Descriptor, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read providers %s: %w", path, err)
	}

	var file providerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse providers %s: %w", path, err)
	}

	byID := make(map[string]providerEntry, len(file.Providers))
	for _, p := range file.Providers {
		byID[p.ID] = p
	}

	role := file.Defaults.VoiceAgent
	var out []inference.Descriptor
	for _, id := range role.FallbackChain {
		p, ok := byID[id]
		if !ok {
			continue
		}

		model := role.PreferredModel[id]
		if model == "" && len(p.Models) > 0 {
			model = p.Models[0]
		}

		compat := inference.Compatibility(p.Compatible)
		if compat == "" {
			compat = inference.CompatOpenAI
		}

		out = append(out, inference.Descriptor{
			ID:         p.ID,
			Name:       p.Name,
			Endpoint:   p.Endpoint,
			APIKeyEnv:  p.APIKeyEnv,
			Model:      model,
			Compatible: compat,
		})
	}
	return out, nil
}

package inference

import (
	"testing"
)

func TestDescriptorHasCredential(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		env  map[string]string
		want bool
	}{
		{
			name: "local provider without key env",
			d:    Descriptor{ID: "ollama", Endpoint: "http://localhost:11434"},
			want: true,
		},
		{
			name: "key env set",
			d:    Descriptor{ID: "openai", APIKeyEnv: "TEST_OPENAI_KEY"},
			env:  map[string]string{"TEST_OPENAI_KEY": "sk-test"},
			want: true,
		},
		{
			name: "key env missing",
			d:    Descriptor{ID: "openai", APIKeyEnv: "TEST_MISSING_KEY"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := tt.d.HasCredential(); got != tt.want {
				t.Errorf("HasCredential() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFromDescriptor(t *testing.T) {
	tests := []struct {
		name     string
		d        Descriptor
		wantErr  bool
		wantType string
	}{
		{
			name:     "openai compatible",
			d:        Descriptor{ID: "groq", Endpoint: "https://api.groq.com/openai/v1", Model: "llama-3.1-8b", Compatible: CompatOpenAI},
			wantType: "groq",
		},
		{
			name:     "default compatibility is openai",
			d:        Descriptor{ID: "together", Endpoint: "https://api.together.xyz/v1", Model: "mixtral"},
			wantType: "together",
		},
		{
			name:     "ollama native",
			d:        Descriptor{ID: "local", Endpoint: "http://localhost:11434", Model: "llama3.2", Compatible: CompatOllama},
			wantType: "local",
		},
		{
			name:    "missing endpoint",
			d:       Descriptor{ID: "broken"},
			wantErr: true,
		},
		{
			name:    "unknown compatibility",
			d:       Descriptor{ID: "odd", Endpoint: "http://x", Compatible: "grpc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewFromDescriptor(tt.d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFromDescriptor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer p.Close()
			if p.Name() != tt.wantType {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.wantType)
			}
		})
	}
}

func TestNewChainFromDescriptorsSkipsMissingCredentials(t *testing.T) {
	t.Setenv("TEST_CHAIN_KEY", "sk-test")

	descriptors := []Descriptor{
		{ID: "no-key", Endpoint: "https://api.example.com/v1", APIKeyEnv: "TEST_CHAIN_MISSING"},
		{ID: "with-key", Endpoint: "https://api.example.com/v1", APIKeyEnv: "TEST_CHAIN_KEY"},
		{ID: "local", Endpoint: "http://localhost:11434", Compatible: CompatOllama},
	}

	chain, err := NewChainFromDescriptors(descriptors, nil)
	if err != nil {
		t.Fatalf("NewChainFromDescriptors failed: %v", err)
	}
	defer chain.Close()

	providers := chain.Providers()
	if len(providers) != 2 {
		t.Fatalf("Expected 2 providers (missing credential skipped), got %d", len(providers))
	}
	if providers[0].Name() != "with-key" || providers[1].Name() != "local" {
		t.Errorf("Wrong chain order: %s, %s", providers[0].Name(), providers[1].Name())
	}
}

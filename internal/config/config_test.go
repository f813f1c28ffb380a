package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openclaw/voicehub/pkg/inference"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s failed: %v", name, err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("llm.base_url = %q", cfg.LLM.BaseURL)
	}
	if cfg.Conversation.MaxTurns != 20 {
		t.Errorf("conversation.max_turns = %d", cfg.Conversation.MaxTurns)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("audio.sample_rate = %d", cfg.Audio.SampleRate)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  base_url: http://box:11434
  model: llama3.2
  stream_timeout: 45s
conversation:
  max_turns: 5
tts:
  engine: say
routing:
  gateway_url: http://gateway:18789
  max_words: 80
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.BaseURL != "http://box:11434" || cfg.LLM.Model != "llama3.2" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.LLM.StreamTimeout != 45*time.Second {
		t.Errorf("stream_timeout = %v", cfg.LLM.StreamTimeout)
	}
	if cfg.Conversation.MaxTurns != 5 {
		t.Errorf("max_turns = %d", cfg.Conversation.MaxTurns)
	}
	if cfg.TTS.Engine != "say" {
		t.Errorf("tts.engine = %q", cfg.TTS.Engine)
	}
	if cfg.Routing.MaxWords != 80 {
		t.Errorf("routing.max_words = %d", cfg.Routing.MaxWords)
	}
	// Untouched sections keep their defaults.
	if cfg.TTS.SampleRate != 22050 {
		t.Errorf("tts.sample_rate = %d", cfg.TTS.SampleRate)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero max_turns": "conversation:\n  max_turns: -1\n",
		"bad tts engine": "tts:\n  engine: festival\n",
		"bad log format": "logging:\n  format: xml\n",
	}
	for name, content := range cases {
		path := writeFile(t, "config.yaml", content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: Load accepted invalid config", name)
		}
	}
}

func TestLoadProviders(t *testing.T) {
	path := writeFile(t, "llm-providers.json", `{
  "providers": [
    {"id": "groq", "name": "Groq", "endpoint": "https://api.groq.com/openai/v1",
     "apiKeyEnv": "GROQ_API_KEY", "models": ["llama-3.3-70b"], "compatible": "openai"},
    {"id": "cerebras", "name": "Cerebras", "endpoint": "https://api.cerebras.ai/v1",
     "apiKeyEnv": "CEREBRAS_API_KEY", "models": ["llama3.1-8b", "llama3.1-70b"]},
    {"id": "unused", "name": "Unused", "endpoint": "https://x", "models": ["m"]}
  ],
  "defaults": {
    "voiceAgent": {
      "fallbackChain": ["groq", "cerebras", "missing"],
      "preferredModel": {"cerebras": "llama3.1-70b"}
    }
  }
}`)

	descriptors, err := LoadProviders(path)
	if err != nil {
		t.Fatalf("LoadProviders failed: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("descriptors = %d, want 2", len(descriptors))
	}
	if descriptors[0].ID != "groq" || descriptors[0].Model != "llama-3.3-70b" {
		t.Errorf("first = %+v", descriptors[0])
	}
	if descriptors[1].ID != "cerebras" || descriptors[1].Model != "llama3.1-70b" {
		t.Errorf("second = %+v", descriptors[1])
	}
	if descriptors[1].Compatible != inference.CompatOpenAI {
		t.Errorf("compatible defaulted to %q", descriptors[1].Compatible)
	}
}

func TestLoadProvidersMissingFile(t *testing.T) {
	descriptors, err := LoadProviders(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil || descriptors != nil {
		t.Errorf("missing file = %v, %v; want nil, nil", descriptors, err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", `
# credentials
GROQ_TEST_KEY=fromfile
PRESET_TEST_KEY=loses
QUOTED_TEST_KEY="quoted value"
MALFORMED LINE
`)

	t.Setenv("PRESET_TEST_KEY", "wins")
	t.Setenv("GROQ_TEST_KEY", "")
	os.Unsetenv("GROQ_TEST_KEY")
	os.Unsetenv("QUOTED_TEST_KEY")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("GROQ_TEST_KEY"); got != "fromfile" {
		t.Errorf("GROQ_TEST_KEY = %q", got)
	}
	if got := os.Getenv("PRESET_TEST_KEY"); got != "wins" {
		t.Errorf("PRESET_TEST_KEY = %q, existing vars must win", got)
	}
	if got := os.Getenv("QUOTED_TEST_KEY"); got != "quoted value" {
		t.Errorf("QUOTED_TEST_KEY = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x/y"); got != filepath.Join(home, "x/y") {
		t.Errorf("ExpandHome(~/x/y) = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ExpandHome(""); got != "" {
		t.Errorf("empty path changed: %q", got)
	}
}

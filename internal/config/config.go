// Package config loads the daemon's YAML configuration, the JSON
// provider descriptor file, and an optional .env file. One Config
// value is constructed at start-up and passed by reference into every
// component constructor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openclaw/voicehub/pkg/audioio"
	"github.com/openclaw/voicehub/pkg/capture"
	"github.com/openclaw/voicehub/pkg/command"
	"github.com/openclaw/voicehub/pkg/control"
	"github.com/openclaw/voicehub/pkg/vad"
)

// Config represents the complete daemon configuration.
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	STT          STTConfig          `yaml:"stt"`
	TTS          TTSConfig          `yaml:"tts"`
	Conversation ConversationConfig `yaml:"conversation"`
	Routing      RoutingConfig      `yaml:"routing"`
	Audio        AudioConfig        `yaml:"audio"`
	Control      control.Config     `yaml:"control"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LLMConfig configures the primary chat backend and the provider
// descriptor file for cloud fallbacks.
type LLMConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	Temperature   float64       `yaml:"temperature"`
	MaxTokens     int           `yaml:"max_tokens"`
	StreamTimeout time.Duration `yaml:"stream_timeout"`

	// ProvidersFile is the JSON descriptor file enumerating cloud
	// fallback providers. Empty disables fallbacks.
	ProvidersFile string `yaml:"providers_file"`
}

// STTConfig configures transcription plus the capture stage that
// feeds it.
type STTConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	Language  string `yaml:"language"`

	VAD     vad.Config     `yaml:"vad"`
	Capture capture.Config `yaml:"capture"`
}

// TTSConfig configures the synthesis engine chain.
type TTSConfig struct {
	// Engine selects the primary synthesizer: piper, http, say, or
	// none. The OS fallback is always appended except for none.
	Engine     string `yaml:"engine"`
	Voice      string `yaml:"voice"`
	Binary     string `yaml:"binary"`
	SampleRate int    `yaml:"sample_rate"`
	Endpoint   string `yaml:"endpoint"`
	APIKeyEnv  string `yaml:"api_key_env"`
	Model      string `yaml:"model"`
}

// ConversationConfig configures memory and the voice command phrases.
type ConversationConfig struct {
	MaxTurns         int             `yaml:"max_turns"`
	HistoryFile      string          `yaml:"history_file"`
	SystemPromptFile string          `yaml:"system_prompt_file"`
	VoiceCommands    command.Phrases `yaml:"voice_commands"`
}

// RoutingConfig configures specialist-agent hand-off.
type RoutingConfig struct {
	GatewayURL    string            `yaml:"gateway_url"`
	TokenEnv      string            `yaml:"token_env"`
	BridgePhrases []string          `yaml:"bridge_phrases"`
	DisplayNames  map[string]string `yaml:"display_names"`
	MaxWords      int               `yaml:"max_words"`
	RouteWindow   int               `yaml:"route_window"`
}

// AudioConfig extends the device settings with the activation cues.
type AudioConfig struct {
	audioio.Config `yaml:",inline"`

	BeepFrequency         float64       `yaml:"beep_frequency"`
	BeepDuration          time.Duration `yaml:"beep_duration"`
	DeactivationFrequency float64       `yaml:"deactivation_frequency"`
	DeactivationDuration  time.Duration `yaml:"deactivation_duration"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is "json" or "text". Default: text.
	Format string `yaml:"format"`
	// File tees logs to a file when set.
	File string `yaml:"file"`
	// CommandLog is the append-only per-turn record. Empty disables it.
	CommandLog string `yaml:"command_log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL:       "http://localhost:11434",
			Model:         "qwen3:30b-a3b",
			Temperature:   0.7,
			MaxTokens:     1024,
			StreamTimeout: 30 * time.Second,
		},
		STT: STTConfig{
			Model:   "whisper-1",
			Capture: capture.DefaultConfig(),
		},
		TTS: TTSConfig{
			Engine:     "piper",
			Voice:      "en_US-lessac-medium",
			SampleRate: 22050,
		},
		Conversation: ConversationConfig{
			MaxTurns:    20,
			HistoryFile: "~/.voicehub/conversation-history.json",
		},
		Routing: RoutingConfig{
			GatewayURL: "http://localhost:18789",
		},
		Audio: AudioConfig{
			Config:                audioio.DefaultConfig(),
			BeepFrequency:         880,
			BeepDuration:          100 * time.Millisecond,
			DeactivationFrequency: 440,
			DeactivationDuration:  80 * time.Millisecond,
		},
		Control: control.DefaultConfig(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			CommandLog: "~/.voicehub/command-log.jsonl",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file
// returns the defaults unchanged, matching a fresh install.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandHome(path))
		if err != nil {
			if os.IsNotExist(err) {
				cfg.expandPaths()
				return &cfg, nil
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() {
	c.LLM.ProvidersFile = ExpandHome(c.LLM.ProvidersFile)
	c.Conversation.HistoryFile = ExpandHome(c.Conversation.HistoryFile)
	c.Conversation.SystemPromptFile = ExpandHome(c.Conversation.SystemPromptFile)
	c.Logging.File = ExpandHome(c.Logging.File)
	c.Logging.CommandLog = ExpandHome(c.Logging.CommandLog)
}

// Validate rejects settings no component could run with.
func (c *Config) Validate() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}
	if c.Conversation.MaxTurns <= 0 {
		return fmt.Errorf("conversation.max_turns must be positive")
	}
	if err := c.Audio.Config.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	switch c.TTS.Engine {
	case "", "piper", "http", "say", "none":
	default:
		return fmt.Errorf("tts.engine %q is not one of piper, http, say, none", c.TTS.Engine)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not text or json", c.Logging.Format)
	}
	return nil
}

// SystemPrompt reads the configured system prompt file. A missing or
// unconfigured file yields an empty preamble.
func (c *Config) SystemPrompt() string {
	if c.Conversation.SystemPromptFile == "" {
		return ""
	}
	data, err := os.ReadFile(c.Conversation.SystemPromptFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

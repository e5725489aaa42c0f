package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m4xw311/grocer/errors"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxIterations = 10
	DefaultExitKeyword   = "exit"
	DefaultGeminiModel   = "gemini-2.0-flash-lite"
	DefaultSpeechFile    = "speech.mp3"
	DefaultTracePath     = ".grocer/events.jsonl"
	DefaultAppVersion    = "1.0.0"
)

// DefaultSystemPrompt tells the model how to use the two list tools.
const DefaultSystemPrompt = `You are a helpful assistant that manages a grocery list and explains topics.

When users want to add items:
1. Determine if the item is a fruit or vegetable
2. Use the add_to_list tool with the correct category
3. Confirm what was added

When users ask to see the list:
1. Use the retrieve_list tool
2. Format the response in a readable way

Always be friendly and helpful in your responses.`

type Retry struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms"`
}

func (r Retry) BaseDelay() time.Duration { return time.Duration(r.BaseDelayMS) * time.Millisecond }
func (r Retry) MaxDelay() time.Duration  { return time.Duration(r.MaxDelayMS) * time.Millisecond }

type Speech struct {
	Enabled  *bool          `yaml:"enabled"`
	Provider string         `yaml:"provider"` // "openai" or "elevenlabs"
	Path     string         `yaml:"path"`
	Players  []string       `yaml:"players"`
	Settings map[string]any `yaml:"settings"`
}

// On reports whether speech output is enabled; it defaults to on.
func (s Speech) On() bool {
	return s.Enabled == nil || *s.Enabled
}

// OpenAISpeechSettings are the speech.settings keys for the openai provider.
type OpenAISpeechSettings struct {
	Model  string `mapstructure:"model"`
	Voice  string `mapstructure:"voice"`
	Format string `mapstructure:"format"`
}

// ElevenLabsSettings are the speech.settings keys for the elevenlabs provider.
type ElevenLabsSettings struct {
	VoiceID      string `mapstructure:"voice_id"`
	ModelID      string `mapstructure:"model_id"`
	OutputFormat string `mapstructure:"output_format"`
}

// Tracing controls the per-turn event log. Tags and metadata are copied
// onto every event and every turn's log lines.
type Tracing struct {
	Enabled  bool              `yaml:"enabled"`
	Path     string            `yaml:"path"`
	Tags     []string          `yaml:"tags"`
	Metadata map[string]string `yaml:"metadata"`
}

type Config struct {
	LLMClient     string  `yaml:"llm"`
	Model         string  `yaml:"model"`
	MaxIterations int     `yaml:"max_iterations"`
	SystemPrompt  string  `yaml:"system_prompt"`
	ExitKeyword   string  `yaml:"exit_keyword"`
	LogLevel      string  `yaml:"log_level"`
	LogFormat     string  `yaml:"log_format"`
	Retry         Retry   `yaml:"retry"`
	Speech        Speech  `yaml:"speech"`
	Tracing       Tracing `yaml:"tracing"`
}

// Default returns the configuration used when no file overrides anything.
func Default() *Config {
	return &Config{
		LLMClient:     "gemini",
		Model:         DefaultGeminiModel,
		MaxIterations: DefaultMaxIterations,
		SystemPrompt:  DefaultSystemPrompt,
		ExitKeyword:   DefaultExitKeyword,
		LogLevel:      "warn",
		LogFormat:     "text",
		Retry: Retry{
			MaxAttempts: 3,
			BaseDelayMS: 200,
			MaxDelayMS:  2000,
		},
		Speech: Speech{
			Provider: "openai",
			Path:     DefaultSpeechPath(),
		},
		Tracing: Tracing{
			Path: DefaultTracePath,
			Tags: []string{"grocery"},
			Metadata: map[string]string{
				"app_version": DefaultAppVersion,
				"environment": "development",
			},
		},
	}
}

// DefaultSpeechPath places the audio file next to the executable.
func DefaultSpeechPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultSpeechFile
	}
	return filepath.Join(filepath.Dir(exe), DefaultSpeechFile)
}

// LoadConfig loads configuration from the user's home directory and the current
// working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	cfg := Default()

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".grocer", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".grocer", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal only overwrites fields present in the YAML, so each file
	// layers on top of the previous one.
	return yaml.Unmarshal(data, cfg)
}

// Validate checks enumerated fields and fills zero values with defaults.
func (c *Config) Validate() error {
	switch c.LLMClient {
	case "gemini", "openai", "anthropic", "bedrock", "mock":
	default:
		return errors.New("unknown llm '%s': must be gemini, openai, anthropic, bedrock or mock", c.LLMClient)
	}
	switch c.Speech.Provider {
	case "openai", "elevenlabs":
	default:
		return errors.New("unknown speech provider '%s': must be openai or elevenlabs", c.Speech.Provider)
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if strings.TrimSpace(c.ExitKeyword) == "" {
		c.ExitKeyword = DefaultExitKeyword
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.Speech.Path == "" {
		c.Speech.Path = DefaultSpeechPath()
	}
	if c.Tracing.Path == "" {
		c.Tracing.Path = DefaultTracePath
	}
	if os.Getenv("GROCER_TRACE") == "1" {
		c.Tracing.Enabled = true
	}
	return nil
}

// DecodeSpeechSettings decodes the free-form speech.settings map into out.
// Keys match field tags ignoring case, dashes and underscores.
func (c *Config) DecodeSpeechSettings(out any) error {
	if len(c.Speech.Settings) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
	})
	if err != nil {
		return errors.Wrapf(err, "invalid speech settings")
	}
	if err := dec.Decode(c.Speech.Settings); err != nil {
		return errors.Wrapf(err, "invalid speech settings")
	}
	return nil
}

func normalizeKey(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return value
}

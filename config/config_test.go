package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ".grocer")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLMClient != "gemini" || cfg.Model != DefaultGeminiModel {
		t.Errorf("unexpected llm defaults %q/%q", cfg.LLMClient, cfg.Model)
	}
	if cfg.MaxIterations != 10 {
		t.Errorf("expected 10 iterations, got %d", cfg.MaxIterations)
	}
	if cfg.ExitKeyword != "exit" {
		t.Errorf("expected exit keyword, got %q", cfg.ExitKeyword)
	}
	if !cfg.Speech.On() {
		t.Errorf("speech should default to on")
	}
	if filepath.Base(cfg.Speech.Path) != DefaultSpeechFile {
		t.Errorf("unexpected speech path %q", cfg.Speech.Path)
	}
}

func TestLoadConfigProjectOverridesUser(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)

	writeConfig(t, home, "llm: openai\nmodel: gpt-4o-mini\nmax_iterations: 4\n")
	writeConfig(t, project, "model: gpt-4o\nspeech:\n  enabled: false\n")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLMClient != "openai" {
		t.Errorf("user-level llm lost: %q", cfg.LLMClient)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("project-level model should win, got %q", cfg.Model)
	}
	if cfg.MaxIterations != 4 {
		t.Errorf("expected 4 iterations, got %d", cfg.MaxIterations)
	}
	if cfg.Speech.On() {
		t.Errorf("speech should be disabled by project config")
	}
}

func TestValidateRejectsUnknownProviders(t *testing.T) {
	cfg := Default()
	cfg.LLMClient = "llama"
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for unknown llm")
	}

	cfg = Default()
	cfg.Speech.Provider = "espeak"
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for unknown speech provider")
	}
}

func TestValidateFillsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.MaxIterations = 0
	cfg.ExitKeyword = "  "
	cfg.SystemPrompt = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.MaxIterations != DefaultMaxIterations || cfg.ExitKeyword != DefaultExitKeyword || cfg.SystemPrompt != DefaultSystemPrompt {
		t.Errorf("defaults not restored: %+v", cfg)
	}
}

func TestDecodeSpeechSettings(t *testing.T) {
	cfg := Default()
	cfg.Speech.Settings = map[string]any{
		"voice-id":      "abc123",
		"ModelID":       "eleven_flash_v2_5",
		"output_format": "mp3_44100_128",
	}
	var s ElevenLabsSettings
	if err := cfg.DecodeSpeechSettings(&s); err != nil {
		t.Fatalf("DecodeSpeechSettings: %v", err)
	}
	if s.VoiceID != "abc123" || s.ModelID != "eleven_flash_v2_5" || s.OutputFormat != "mp3_44100_128" {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestTracingDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	writeConfig(t, dir, "tracing:\n  metadata:\n    environment: production\n")

	t.Setenv("GROCER_TRACE", "")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Tracing.Enabled {
		t.Errorf("tracing should default to off")
	}
	if cfg.Tracing.Path != DefaultTracePath || len(cfg.Tracing.Tags) != 1 || cfg.Tracing.Tags[0] != "grocery" {
		t.Errorf("unexpected tracing defaults %+v", cfg.Tracing)
	}
	if cfg.Tracing.Metadata["app_version"] != DefaultAppVersion || cfg.Tracing.Metadata["environment"] != "production" {
		t.Errorf("expected metadata merged over defaults, got %v", cfg.Tracing.Metadata)
	}
	if cfg.Speech.Players != nil {
		t.Errorf("players should be left to the speech package, got %v", cfg.Speech.Players)
	}

	t.Setenv("GROCER_TRACE", "1")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Tracing.Enabled {
		t.Errorf("GROCER_TRACE=1 should enable tracing")
	}
}

package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvDataDir, "")
	t.Setenv(EnvProfile, "")
	t.Setenv(EnvInboxDir, "")
	t.Setenv(EnvGeminiAPIKeys, "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != DefaultLogLevel {
		t.Errorf("LogLevel() = %q, want %q", cfg.LogLevel(), DefaultLogLevel)
	}
	if cfg.ProfilePath() != "" {
		t.Errorf("ProfilePath() = %q, want empty", cfg.ProfilePath())
	}
	if cfg.InboxDir() != "" {
		t.Errorf("InboxDir() = %q, want empty", cfg.InboxDir())
	}
	if len(cfg.GeminiAPIKeys()) != 0 {
		t.Errorf("GeminiAPIKeys() = %v, want none", cfg.GeminiAPIKeys())
	}
	if cfg.ReasoningTimeout() != 300*time.Second {
		t.Errorf("ReasoningTimeout() = %v", cfg.ReasoningTimeout())
	}
	if cfg.EmbedTimeout() != 60*time.Second {
		t.Errorf("EmbedTimeout() = %v", cfg.EmbedTimeout())
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9001")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDataDir, "/tmp/roughcut-test")
	t.Setenv(EnvProfile, "/tmp/profile.yaml")
	t.Setenv(EnvInboxDir, "/tmp/inbox")
	t.Setenv(EnvOllamaHost, "http://127.0.0.1:11435")
	t.Setenv(EnvGeminiAPIKeys, "key-a, key-b ,,key-c")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if cfg.Port() != 9001 {
		t.Errorf("Port() = %d, want 9001", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %q, want debug", cfg.LogLevel())
	}
	if cfg.DataDir() != "/tmp/roughcut-test" {
		t.Errorf("DataDir() = %q", cfg.DataDir())
	}
	if cfg.DBPath() != filepath.Join("/tmp/roughcut-test", DBFilename) {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
	if cfg.ArtifactsDir() != filepath.Join("/tmp/roughcut-test", "artifacts") {
		t.Errorf("ArtifactsDir() = %q", cfg.ArtifactsDir())
	}
	if cfg.ProfilePath() != "/tmp/profile.yaml" {
		t.Errorf("ProfilePath() = %q", cfg.ProfilePath())
	}
	if cfg.InboxDir() != "/tmp/inbox" {
		t.Errorf("InboxDir() = %q", cfg.InboxDir())
	}
	if cfg.OllamaHost() != "http://127.0.0.1:11435" {
		t.Errorf("OllamaHost() = %q", cfg.OllamaHost())
	}

	keys := cfg.GeminiAPIKeys()
	want := []string{"key-a", "key-b", "key-c"}
	if len(keys) != len(want) {
		t.Fatalf("GeminiAPIKeys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("GeminiAPIKeys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestNew_InvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port string
	}{
		{"not a number", "abc"},
		{"zero", "0"},
		{"negative", "-1"},
		{"too large", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvPort, tt.port)
			if _, err := New(); err == nil {
				t.Errorf("New() with port %q expected error", tt.port)
			}
		})
	}
}

// Package config provides configuration management for the Roughcut Agent.
// Process-level settings are loaded from environment variables with sensible
// defaults; editorial settings live in a YAML project profile.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// Default values
	DefaultPort     = 8877
	DefaultLogLevel = "info"
	DefaultDataDir  = ".roughcut"

	// Environment variable names
	EnvPort     = "ROUGHCUT_PORT"
	EnvLogLevel = "ROUGHCUT_LOG_LEVEL"
	EnvDataDir  = "ROUGHCUT_DATA_DIR"
	EnvProfile  = "ROUGHCUT_PROFILE"
	EnvInboxDir = "ROUGHCUT_INBOX_DIR"

	// Collaborator environment variable names
	EnvOllamaHost    = "ROUGHCUT_OLLAMA_HOST"
	EnvGeminiAPIKeys = "ROUGHCUT_GEMINI_API_KEYS"

	// Database filename
	DBFilename = "roughcut.db"

	// Collaborator call timeouts
	DefaultTimeoutReasoning = 300 // seconds
	DefaultTimeoutEmbed     = 60  // seconds
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ArtifactsDir() string
	ProfilePath() string
	InboxDir() string
	OllamaHost() string
	GeminiAPIKeys() []string
	ReasoningTimeout() time.Duration
	EmbedTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string

	profilePath   string
	inboxDir      string
	ollamaHost    string
	geminiAPIKeys []string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.profilePath = os.Getenv(EnvProfile)
	cfg.inboxDir = os.Getenv(EnvInboxDir)
	cfg.ollamaHost = os.Getenv(EnvOllamaHost)

	if keys := os.Getenv(EnvGeminiAPIKeys); keys != "" {
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.geminiAPIKeys = append(cfg.geminiAPIKeys, k)
			}
		}
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ArtifactsDir returns the directory holding per-run stage artifacts
func (c *EnvConfig) ArtifactsDir() string {
	return filepath.Join(c.dataDir, "artifacts")
}

// ProfilePath returns the path to the YAML project profile, if configured
func (c *EnvConfig) ProfilePath() string {
	return c.profilePath
}

// InboxDir returns the watched inbox directory, empty when watch mode is off
func (c *EnvConfig) InboxDir() string {
	return c.inboxDir
}

func (c *EnvConfig) OllamaHost() string {
	return c.ollamaHost
}

func (c *EnvConfig) GeminiAPIKeys() []string {
	return c.geminiAPIKeys
}

func (c *EnvConfig) ReasoningTimeout() time.Duration {
	return time.Duration(DefaultTimeoutReasoning) * time.Second
}

func (c *EnvConfig) EmbedTimeout() time.Duration {
	return time.Duration(DefaultTimeoutEmbed) * time.Second
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

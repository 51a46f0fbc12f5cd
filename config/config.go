// Package config loads the daemon configuration from a YAML file.
// Every field has a working default; an absent file yields the defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Semantic configures the optional vector index. The ONNX fields are only
// consulted in builds that include the onnx embedder.
type Semantic struct {
	Enabled       bool   `yaml:"enabled"`
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	LibraryPath   string `yaml:"library_path"`
	Dimensions    int    `yaml:"dimensions"`
}

// Config is the daemon configuration.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	// ListenURL is the websocket endpoint of the chat bridge.
	ListenURL string `yaml:"listen_url"`

	// Model and MaxTokens configure the language-model collaborator. The
	// API key always comes from ANTHROPIC_API_KEY, never from this file.
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`

	// VocabPath optionally overrides the built-in context vocabularies.
	VocabPath string `yaml:"vocab_path"`

	// HotWindowDays bounds how far back context matching searches.
	HotWindowDays int `yaml:"hot_window_days"`

	// ContextWindow is how many prior messages are passed to the model.
	ContextWindow int `yaml:"context_window"`

	// ActiveLimit bounds the active-event snapshot.
	ActiveLimit int `yaml:"active_limit"`

	Semantic Semantic `yaml:"semantic"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DBPath:        "engram.db",
		ListenURL:     "ws://localhost:8090/ws",
		MaxTokens:     2048,
		HotWindowDays: 30,
		ContextWindow: 5,
		ActiveLimit:   20,
	}
}

// Load reads a config file, layering it over the defaults. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

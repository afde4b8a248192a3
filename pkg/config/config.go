// Package config loads hotloop run configuration from hotloop.yml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file hotloop looks for.
const FileName = "hotloop.yml"

// Config holds run configuration. CLI flags override anything set here.
type Config struct {
	// Every is the default reload sampling interval for marked constructs.
	Every int `yaml:"every"`
	// Pretty switches diagnostics from JSON lines to readable text.
	Pretty bool `yaml:"pretty"`
	// AutoRetry replaces the blocking console with an always-retry policy.
	AutoRetry bool `yaml:"autoRetry"`
	// RetryDelayMs is the pause between automatic retries.
	RetryDelayMs int `yaml:"retryDelayMs"`
	// HistoryFile is where the REPL persists input history.
	HistoryFile string `yaml:"historyFile"`
	// Prompt is the REPL prompt string.
	Prompt string `yaml:"prompt"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Every:        1,
		Pretty:       false,
		AutoRetry:    false,
		RetryDelayMs: 500,
		HistoryFile:  ".hotloop_history",
		Prompt:       ">> ",
	}
}

// Load reads a configuration file, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Every < 1 {
		cfg.Every = 1
	}
	return cfg, nil
}

// Discover walks upward from dir looking for hotloop.yml. Without one the
// defaults apply; the returned path is empty in that case.
func Discover(dir string) (Config, string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Default(), "", err
	}
	for {
		candidate := filepath.Join(abs, FileName)
		if _, err := os.Stat(candidate); err == nil {
			cfg, err := Load(candidate)
			return cfg, candidate, err
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return Default(), "", nil
		}
		abs = parent
	}
}

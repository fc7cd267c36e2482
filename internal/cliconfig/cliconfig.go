// Package cliconfig persists the local CLI configuration: API origin,
// bearer token, and default agent name.
package cliconfig

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

const (
	configDirName       = "agent-images"
	legacyConfigDirName = "gh-agent-images"
	configFileName      = "config.json"
)

// Config is the persisted CLI state.
type Config struct {
	API          string `json:"api"`
	Token        string `json:"token"`
	DefaultAgent string `json:"defaultAgent"`
}

// Path returns the config file path, ~/.config/agent-images/config.json.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", configDirName, configFileName), nil
}

// legacyPath is the pre-rename location; read as a migration fallback,
// never written.
func legacyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", legacyConfigDirName, configFileName), nil
}

// Load reads the config, falling back to the legacy path when the
// current one does not exist. Returns nil with no error when neither
// file exists.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	cfg, err := readConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	legacy, err := legacyPath()
	if err != nil {
		return nil, err
	}
	cfg, err = readConfig(legacy)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(err) {
		return nil, nil
	}
	return nil, err
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config at %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config to the current path with restrictive
// permissions (it holds the bearer token).
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// EnsureHTTPOrigin validates rawURL as an http(s) URL and returns its
// origin (scheme://host).
func EnsureHTTPOrigin(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("`--api` must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("`--api` must use http:// or https://")
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("`--api` must be a valid URL")
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

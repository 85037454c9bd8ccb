package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ClientConfig configures the stusave command line client.
type ClientConfig struct {
	// ServerURL is where the exchange endpoints live.
	ServerURL string `yaml:"server_url"`
	// AppURL is the origin embedded in generated QR codes.
	AppURL         string        `yaml:"app_url"`
	StateFile      string        `yaml:"state_file"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
}

func DefaultClient() *ClientConfig {
	stateFile := "stusave.json"
	if dir, err := os.UserConfigDir(); err == nil {
		stateFile = filepath.Join(dir, "stusave", "state.json")
	}

	return &ClientConfig{
		ServerURL:      "http://localhost:8080",
		AppURL:         "http://localhost:8080",
		StateFile:      stateFile,
		RequestTimeout: 15 * time.Second,
		LogLevel:       "warn",
	}
}

func LoadClient(path string) (*ClientConfig, error) {
	cfg := DefaultClient()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("STUSAVE_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("STUSAVE_APP_URL"); v != "" {
		cfg.AppURL = v
	}
	if v := os.Getenv("STUSAVE_STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("STUSAVE_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv("STUSAVE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	for name, raw := range map[string]string{"server_url": c.ServerURL, "app_url": c.AppURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL: %q", name, raw)
		}
	}
	if c.StateFile == "" {
		return fmt.Errorf("state_file is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}

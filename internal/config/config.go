// Package config holds the transkitd daemon configuration, loaded from a
// YAML file with environment-variable defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TranscriptEntry is one explicit transcript choice for a unit.
type TranscriptEntry struct {
	Title            string `yaml:"title"`
	URL              string `yaml:"url"`
	MachineGenerated bool   `yaml:"machine_generated"`
}

type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// ManifestPath points at a local IIIF manifest file. ManifestURL is
	// used instead when set; either enables discovery mode.
	ManifestPath string `yaml:"manifest_path"`
	ManifestURL  string `yaml:"manifest_url"`

	// Transcripts lists explicit sources per unit; a unit with entries
	// here skips manifest discovery.
	Transcripts [][]TranscriptEntry `yaml:"transcripts"`

	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	LogLevel            string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		Addr:                envOr("TRANSKIT_ADDR", "127.0.0.1:8080"),
		ManifestPath:        os.Getenv("TRANSKIT_MANIFEST_PATH"),
		ManifestURL:         os.Getenv("TRANSKIT_MANIFEST_URL"),
		FetchTimeoutSeconds: 15,
		LogLevel:            envOr("TRANSKIT_LOG_LEVEL", "info"),
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch_timeout_seconds must be positive")
	}
	if c.ManifestPath == "" && c.ManifestURL == "" && len(c.Transcripts) == 0 {
		return fmt.Errorf("need a manifest (manifest_path or manifest_url) or explicit transcripts")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

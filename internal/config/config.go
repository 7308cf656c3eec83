// Package config handles Apex configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/apex/config.yaml, /etc/apex/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "apex", "config.yaml"))
	}

	paths = append(paths, "/etc/apex/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Apex configuration.
type Config struct {
	Listen    ListenConfig `yaml:"listen"`
	Models    ModelsConfig `yaml:"models"`
	Search    SearchConfig `yaml:"search"`
	Clock     ClockConfig  `yaml:"clock"`
	DataDir   string       `yaml:"data_dir"`
	LogLevel  string       `yaml:"log_level"`
	LogFormat string       `yaml:"log_format"` // text (default) or json
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelsConfig defines LLM provider settings.
type ModelsConfig struct {
	Default   string        `yaml:"default"`
	OllamaURL string        `yaml:"ollama_url"`
	OpenAI    OpenAIConfig  `yaml:"openai"`
	Available []ModelConfig `yaml:"available"`
}

// OpenAIConfig defines an OpenAI-compatible chat completions backend.
// BaseURL may point at any compatible endpoint (OpenAI, Groq, vLLM).
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"` // default 60
}

// Configured reports whether an OpenAI API key is set.
func (c OpenAIConfig) Configured() bool {
	return c.APIKey != ""
}

// ModelConfig maps a model name to its provider.
type ModelConfig struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"` // ollama, openai
}

// SearchConfig defines web search provider settings.
type SearchConfig struct {
	Provider   string        `yaml:"provider"` // brave, searxng
	Brave      BraveConfig   `yaml:"brave"`
	SearXNG    SearXNGConfig `yaml:"searxng"`
	MaxResults int           `yaml:"max_results"` // default 3
}

// BraveConfig holds the Brave Search API credential.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether a Brave API key is set.
func (c BraveConfig) Configured() bool {
	return c.APIKey != ""
}

// SearXNGConfig holds the SearXNG instance location.
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Configured reports whether a SearXNG base URL is set.
func (c SearXNGConfig) Configured() bool {
	return c.BaseURL != ""
}

// ClockConfig defines the fixed-offset clock used by the get_time tool.
type ClockConfig struct {
	UTCOffsetHours int    `yaml:"utc_offset_hours"`
	Label          string `yaml:"label"` // human name for the offset, e.g. "Riyadh"
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables so credentials can live in the
	// environment (or a .env file) instead of the config file itself.
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Models: ModelsConfig{
			Default:   "qwen3:4b",
			OllamaURL: "http://localhost:11434",
			OpenAI:    OpenAIConfig{TimeoutSec: 60},
		},
		Search: SearchConfig{
			Provider:   "brave",
			MaxResults: 3,
		},
		Clock: ClockConfig{
			UTCOffsetHours: 3,
			Label:          "Riyadh",
		},
		DataDir: "data",
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range", c.Listen.Port)
	}
	if c.Models.Default == "" {
		return fmt.Errorf("models.default is required")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q (expected text or json)", c.LogFormat)
	}
	for _, m := range c.Models.Available {
		switch m.Provider {
		case "ollama", "openai":
		default:
			return fmt.Errorf("model %q: unknown provider %q", m.Name, m.Provider)
		}
	}
	switch c.Search.Provider {
	case "", "brave", "searxng":
	default:
		return fmt.Errorf("unknown search provider %q", c.Search.Provider)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must not be negative")
	}
	return nil
}

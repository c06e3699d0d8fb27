package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/arnevogt/kindledigest/internal/interest"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Interests interest.Interests `yaml:"interests"`
	Feeds     []string           `yaml:"feeds"`
	Limits    Limits             `yaml:"limits"`
	Digest    Digest             `yaml:"digest"`
	LLM       LLM                `yaml:"llm"`
	Email     Email              `yaml:"email"`
	Output    Output             `yaml:"output"`
	Schedule  string             `yaml:"schedule"`
}

type Limits struct {
	MaxArticles  int `yaml:"max_articles"`
	MaxSaved     int `yaml:"max_saved"`
	MaxFeedItems int `yaml:"max_feed_items"`
	MaxPerTopic  int `yaml:"max_per_topic"`
}

type Digest struct {
	Tiered           bool `yaml:"tiered"`
	ArchiveFeedItems bool `yaml:"archive_feed_items"`
}

type LLM struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Email struct {
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for kindledigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "kindledigest")
}

// DataDir returns the XDG data directory for kindledigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "kindledigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/kindledigest/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'kindledigest init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Limits: Limits{
			MaxArticles:  20,
			MaxSaved:     10,
			MaxFeedItems: 12,
			MaxPerTopic:  3,
		},
		Digest: Digest{Tiered: true},
		LLM: LLM{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   512,
		},
		Email:    Email{SMTPPort: 587},
		Schedule: "0 6 * * *",
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// FeedURLs returns base feeds plus topic-specific feeds, deduplicated,
// preserving configuration order.
func (c *Config) FeedURLs() []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, u := range append(append([]string{}, c.Feeds...), c.Interests.FeedURLs()...) {
		if _, dup := seen[u]; dup || u == "" {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// ABOUTME: Configuration management for dashmatch with YAML config loading.
// ABOUTME: Handles host and AI credentials, .env overlays, defaults, and ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied before the config file and environment are read.
const (
	DefaultAIURL              = "https://generativelanguage.googleapis.com"
	DefaultEmbedModel         = "text-embedding-004"
	DefaultTextModel          = "gemini-1.5-flash"
	DefaultTop                = 3
	DefaultLoadWorkers        = 4
	DefaultHTTPTimeoutSeconds = 30
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// Config stores dashmatch configuration loaded from ~/.config/dashmatch/config.yaml.
type Config struct {
	Host               HostConfig   `yaml:"host"`
	AI                 AIConfig     `yaml:"ai"`
	Search             SearchConfig `yaml:"search"`
	Cache              CacheConfig  `yaml:"cache"`
	Log                LogConfig    `yaml:"log"`
	HTTPTimeoutSeconds int          `yaml:"http_timeout_seconds"`
}

// HostConfig holds the analytics host API credentials.
type HostConfig struct {
	URL          string `yaml:"url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// AIConfig holds generative-AI service settings.
type AIConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	EmbedModel string `yaml:"embed_model"`
	TextModel  string `yaml:"text_model"`
}

// SearchConfig tunes matching and embedding load.
type SearchConfig struct {
	Top         int `yaml:"top"`
	LoadWorkers int `yaml:"load_workers"`
}

// CacheConfig controls the on-disk embedding cache.
type CacheConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns a config populated with built-in defaults.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			URL:        DefaultAIURL,
			EmbedModel: DefaultEmbedModel,
			TextModel:  DefaultTextModel,
		},
		Search: SearchConfig{
			Top:         DefaultTop,
			LoadWorkers: DefaultLoadWorkers,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		HTTPTimeoutSeconds: DefaultHTTPTimeoutSeconds,
	}
}

// HasHost returns true if analytics host credentials are configured.
func (c *Config) HasHost() bool {
	return c.Host.URL != "" && c.Host.ClientID != "" && c.Host.ClientSecret != ""
}

// HasAI returns true if the generative-AI service is configured.
func (c *Config) HasAI() bool {
	return c.AI.URL != "" && c.AI.APIKey != ""
}

// Validate reports every missing setting required to search dashboards.
func (c *Config) Validate() error {
	var missing []string
	if c.Host.URL == "" {
		missing = append(missing, "host.url")
	}
	if c.Host.ClientID == "" {
		missing = append(missing, "host.client_id")
	}
	if c.Host.ClientSecret == "" {
		missing = append(missing, "host.client_secret")
	}
	if c.AI.APIKey == "" {
		missing = append(missing, "ai.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s (run 'dashmatch setup' or set them in %s)",
			strings.Join(missing, ", "), configPathHint())
	}
	if c.Search.Top < 0 {
		return fmt.Errorf("search.top must be >= 0, got %d", c.Search.Top)
	}
	return nil
}

// HTTPTimeout returns the per-request timeout for remote calls.
func (c *Config) HTTPTimeout() time.Duration {
	if c.HTTPTimeoutSeconds <= 0 {
		return DefaultHTTPTimeoutSeconds * time.Second
	}
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// GetCachePath returns the embedding cache database path.
func (c *Config) GetCachePath() (string, error) {
	if c.Cache.Path != "" {
		return ExpandPath(c.Cache.Path)
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "embeddings.db"), nil
}

// GetLogPath returns the log file used while the TUI owns the terminal.
func (c *Config) GetLogPath() (string, error) {
	if c.Log.File != "" {
		return ExpandPath(c.Log.File)
	}
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "dashmatch", "dashmatch.log"), nil
}

// DataDir returns the default data directory.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "dashmatch"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "dashmatch", "config.yaml"), nil
}

func configPathHint() string {
	path, err := GetConfigPath()
	if err != nil {
		return "config.yaml"
	}
	return path
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk, then applies .env and environment overrides.
// Returns the default config if the file doesn't exist.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides file values with DASHMATCH_* environment variables.
func (c *Config) applyEnv() {
	setString(&c.Host.URL, "DASHMATCH_HOST_URL")
	setString(&c.Host.ClientID, "DASHMATCH_CLIENT_ID")
	setString(&c.Host.ClientSecret, "DASHMATCH_CLIENT_SECRET")
	setString(&c.AI.URL, "DASHMATCH_AI_URL")
	setString(&c.AI.APIKey, "DASHMATCH_AI_API_KEY")
	setString(&c.AI.EmbedModel, "DASHMATCH_EMBED_MODEL")
	setString(&c.AI.TextModel, "DASHMATCH_TEXT_MODEL")
	setString(&c.Log.Level, "DASHMATCH_LOG_LEVEL")
	setString(&c.Cache.Path, "DASHMATCH_CACHE_PATH")

	if v := os.Getenv("DASHMATCH_TOP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.Top = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

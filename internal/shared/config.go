package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Quota       QuotaConfig       `toml:"quota"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Matcher     MatcherConfig     `toml:"matcher"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify client-credentials settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// YouTubeConfig contains YouTube Data API and search proxy settings.
type YouTubeConfig struct {
	ClientSecretPath string `toml:"client_secret_path"`
	TokenPath        string `toml:"token_path"`
	RedirectURI      string `toml:"redirect_uri"`
	ProxyURL         string `toml:"proxy_url"`
	Privacy          string `toml:"privacy"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// QuotaConfig describes the daily budget and per-operation costs.
type QuotaConfig struct {
	Path       string         `toml:"path"`
	DailyLimit int            `toml:"daily_limit"`
	Costs      map[string]int `toml:"costs"`
}

// PipelineConfig controls chunking, pacing and retries for a conversion.
type PipelineConfig struct {
	ChunkSize          int    `toml:"chunk_size"`
	ChunkDelaySeconds  int    `toml:"chunk_delay_seconds"`
	MaxRetries         int    `toml:"max_retries"`
	RetryDelaySeconds  int    `toml:"retry_delay_seconds"`
	CheckpointPath     string `toml:"checkpoint_path"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	Description        string `toml:"description"`
}

// MatcherConfig controls search and result selection.
type MatcherConfig struct {
	Backend         string  `toml:"backend"`
	CacheSize       int     `toml:"cache_size"`
	SkipTopResult   bool    `toml:"skip_top_result"`
	Filter          string  `toml:"filter"`
	RateLimit       float64 `toml:"rate_limit"`
	BreakerFailures int     `toml:"breaker_failures"`
	Durable         bool    `toml:"durable"`
}

// UsesAPI reports whether searches go through the metered YouTube Data API instead of the proxy.
func (m MatcherConfig) UsesAPI() bool {
	return m.Backend == "api"
}

// LogConfig controls log level and the optional rotated log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ChunkDelay returns the inter-chunk delay as a [time.Duration].
func (p PipelineConfig) ChunkDelay() time.Duration {
	return time.Duration(p.ChunkDelaySeconds) * time.Second
}

// RetryDelay returns the base retry delay as a [time.Duration].
func (p PipelineConfig) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelaySeconds) * time.Second
}

// HTTPTimeout returns the outbound HTTP timeout as a [time.Duration].
func (p PipelineConfig) HTTPTimeout() time.Duration {
	return time.Duration(p.HTTPTimeoutSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return WriteFileAtomic(path, buf.Bytes(), 0644)
}

// ApplyEnv loads variables from the given .env files (if present) and lets
// SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and YOUTUBE_CLIENT_SECRET_PATH override the file config.
func (c *Config) ApplyEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("YOUTUBE_CLIENT_SECRET_PATH"); v != "" {
		c.Credentials.YouTube.ClientSecretPath = v
	}
}

// HasSpotifyCredentials reports whether both Spotify client id and secret are set.
func (c *Config) HasSpotifyCredentials() bool {
	s := c.Credentials.Spotify
	return s.ClientID != "" && s.ClientSecret != "" &&
		s.ClientID != "your_spotify_client_id" && s.ClientSecret != "your_spotify_client_secret"
}

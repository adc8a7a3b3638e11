package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Database    DatabaseConfig    `toml:"database"`
	Output      OutputConfig      `toml:"output"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	LastFM   LastFMConfig   `toml:"lastfm"`
	DeepSeek DeepSeekConfig `toml:"deepseek"`
}

// SpotifyConfig contains Spotify API credentials. Tokens are written back
// after an auth flow so later runs reuse them.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
}

// Map flattens the credentials into the map form the Spotify service consumes.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
		"access_token":  c.AccessToken,
		"refresh_token": c.RefreshToken,
	}
}

// LastFMConfig contains Last.fm API credentials.
type LastFMConfig struct {
	APIKey string `toml:"api_key"`
}

// DeepSeekConfig contains DeepSeek scoring service credentials and endpoint settings.
type DeepSeekConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout as a [time.Duration].
func (c DeepSeekConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PipelineConfig contains defaults for a pipeline run, overridable per-command via flags.
type PipelineConfig struct {
	Tracks           int     `toml:"tracks"`
	Clusters         int     `toml:"clusters"`
	BatchSize        int     `toml:"batch_size"`
	MinScore         float64 `toml:"min_score"`
	Seed             int64   `toml:"seed"`
	PCAComponents    int     `toml:"pca_components"`
	MaxAttempts      int     `toml:"max_attempts"`
	BaseDelayMS      int     `toml:"base_delay_ms"`
	BatchIntervalMS  int     `toml:"batch_interval_ms"`
	EnrichIntervalMS int     `toml:"enrich_interval_ms"`
	SkipLastFM       bool    `toml:"skip_lastfm"`
}

// BaseDelay returns the retry base delay as a [time.Duration].
func (p PipelineConfig) BaseDelay() time.Duration {
	return time.Duration(p.BaseDelayMS) * time.Millisecond
}

// BatchInterval returns the minimum interval between scoring batches.
func (p PipelineConfig) BatchInterval() time.Duration {
	return time.Duration(p.BatchIntervalMS) * time.Millisecond
}

// EnrichInterval returns the minimum interval between enrichment lookups.
func (p PipelineConfig) EnrichInterval() time.Duration {
	return time.Duration(p.EnrichIntervalMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings for the enrichment cache.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// OutputConfig contains report and playlist output settings.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to the given path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

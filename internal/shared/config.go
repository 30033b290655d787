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
	Probe       ProbeConfig       `toml:"probe"`
	Library     LibraryConfig     `toml:"library"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains storage-provider credentials.
type CredentialsConfig struct {
	Dropbox DropboxConfig `toml:"dropbox"`
}

// DropboxConfig contains Dropbox API credentials.
type DropboxConfig struct {
	AppKey       string `toml:"app_key"`
	AppSecret    string `toml:"app_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
}

// ProbeConfig contains playability-probe settings.
type ProbeConfig struct {
	TimeoutMS   int    `toml:"timeout_ms"`   // per-probe hard timeout, fail-open
	Concurrency int    `toml:"concurrency"`  // duration extraction group size
	FFprobePath string `toml:"ffprobe_path"` // path to the ffprobe binary
	FFmpegPath  string `toml:"ffmpeg_path"`  // path to the ffmpeg binary
}

// Timeout returns the probe timeout as a [time.Duration], defaulting to 3s.
func (p ProbeConfig) Timeout() time.Duration {
	if p.TimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// LibraryConfig contains folder-browsing defaults.
type LibraryConfig struct {
	DefaultFolder   string   `toml:"default_folder"`
	VideoExtensions []string `toml:"video_extensions"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
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

// SaveConfig writes the configuration as TOML to the specified path.
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
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
)

const appName = "hitx"

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Scanner     ScannerConfig     `toml:"scanner"`
	Camera      CameraConfig      `toml:"camera"`
	Player      PlayerConfig      `toml:"player"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the persisted token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ScannerConfig tunes the decode cadence and the scan gate.
type ScannerConfig struct {
	PrimaryIntervalMS  int  `toml:"primary_interval_ms"`
	FallbackIntervalMS int  `toml:"fallback_interval_ms"`
	CooldownMS         int  `toml:"cooldown_ms"`
	MaxDecodeWidth     int  `toml:"max_decode_width"`
	TryHarder          bool `toml:"try_harder"`
}

// CameraConfig describes the capture device handed to ffmpeg.
type CameraConfig struct {
	Device    string `toml:"device"`
	Format    string `toml:"format"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Framerate int    `toml:"framerate"`
}

// PlayerConfig holds playback defaults.
type PlayerConfig struct {
	Mode     string `toml:"mode"`
	Name     string `toml:"name"`
	Volume   int    `toml:"volume"`
	DeviceID string `toml:"device_id"`
	Output   string `toml:"output"`
}

// PrimaryInterval returns the primary decode cadence.
func (s ScannerConfig) PrimaryInterval() time.Duration {
	return time.Duration(s.PrimaryIntervalMS) * time.Millisecond
}

// FallbackInterval returns the manual-inversion decode cadence.
func (s ScannerConfig) FallbackInterval() time.Duration {
	return time.Duration(s.FallbackIntervalMS) * time.Millisecond
}

// Cooldown returns the minimum time between accepted scans.
func (s ScannerConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownMS) * time.Millisecond
}

// Map returns the credentials in the shape expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// Token returns the persisted [oauth2.Token], or nil when no access token has been stored.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.TokenExpiry,
	}
}

// Update copies a freshly issued token into the config. A token without a refresh token keeps the previous one.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrMissingCredentials)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenExpiry = token.Expiry
	return nil
}

// DatabasePath returns the configured database path, falling back to the XDG data directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	return xdg.DataFile(filepath.Join(appName, "hitx.db"))
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects values the scanner and player cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Scanner.PrimaryIntervalMS <= 0 || c.Scanner.FallbackIntervalMS <= 0:
		return fmt.Errorf("%w: scanner intervals must be positive", ErrInvalidConfig)
	case c.Scanner.CooldownMS < 0:
		return fmt.Errorf("%w: scanner cooldown cannot be negative", ErrInvalidConfig)
	case c.Player.Volume < 0 || c.Player.Volume > 100:
		return fmt.Errorf("%w: player volume %d outside 0-100", ErrInvalidConfig, c.Player.Volume)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}
	switch strings.ToLower(strings.TrimSpace(c.Player.Mode)) {
	case "", "local", "remote":
		return nil
	default:
		return fmt.Errorf("%w: unknown player mode %q", ErrInvalidConfig, c.Player.Mode)
	}
}

// LoadOrDefault loads the config at path if it exists and returns the defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	return LoadConfig(path)
}

// SaveConfig writes the config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Package config loads civic-certificate settings from defaults, an
// optional TOML file and CIVIC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Regions  RegionsConfig  `mapstructure:"regions"`
	Render   RenderConfig   `mapstructure:"render"`
	Share    ShareConfig    `mapstructure:"share"`
	Caption  CaptionConfig  `mapstructure:"caption"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// GeocoderConfig holds Nominatim settings.
type GeocoderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Language  string        `mapstructure:"language"`
}

// RegionsConfig holds the decorative imagery catalog settings.
type RegionsConfig struct {
	// Catalog is an optional JSON file replacing the embedded catalog.
	Catalog      string `mapstructure:"catalog"`
	ImageBaseURL string `mapstructure:"image_base_url"`
}

// RenderConfig holds certificate rendering settings.
type RenderConfig struct {
	Scale float64 `mapstructure:"scale"`
}

// ShareConfig holds S3 and Instagram settings.
type ShareConfig struct {
	Bucket              string        `mapstructure:"bucket"`
	LinkExpiry          time.Duration `mapstructure:"link_expiry"`
	InstagramTokenParam string        `mapstructure:"instagram_token_param"`
	InstagramUserParam  string        `mapstructure:"instagram_user_param"`
}

// CaptionConfig holds Gemini settings.
type CaptionConfig struct {
	Model     string `mapstructure:"model"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
}

// ResolveAPIKey prefers the configured key, then the named env var.
func (c CaptionConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv)
	}
	return ""
}

// MetricsConfig toggles session metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Path returns the config file location: CIVIC_CONFIG if set, otherwise
// ~/.config/civic-certificate/config.toml.
func Path() string {
	if p := os.Getenv("CIVIC_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "civic-certificate", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use
// prefix CIVIC_, e.g. CIVIC_SHARE_BUCKET. A missing default config file is
// not an error; a missing CIVIC_CONFIG file is.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "civic-certificate/1.0")
	v.SetDefault("geocoder.timeout", "10s")
	v.SetDefault("geocoder.language", "en")
	v.SetDefault("regions.catalog", "")
	v.SetDefault("regions.image_base_url", "")
	v.SetDefault("render.scale", 2.0)
	v.SetDefault("share.bucket", "")
	v.SetDefault("share.link_expiry", "24h")
	v.SetDefault("share.instagram_token_param", "/civic-certificate/prod/instagram-access-token")
	v.SetDefault("share.instagram_user_param", "/civic-certificate/prod/instagram-user-id")
	v.SetDefault("caption.model", "gemini-2.5-flash")
	v.SetDefault("caption.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("caption.api_key", "")
	v.SetDefault("metrics.enabled", false)

	v.SetConfigType("toml")
	explicit := os.Getenv("CIVIC_CONFIG") != ""
	v.SetConfigFile(Path())

	v.SetEnvPrefix("CIVIC")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), !explicit && errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Render.Scale <= 0 {
		return Config{}, fmt.Errorf("render.scale must be positive, got %v", c.Render.Scale)
	}
	return c, nil
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete configuration for the sync engine.
type Config struct {
	Environment string        `mapstructure:"environment"`
	Debug       bool          `mapstructure:"debug"`
	Server      ServerConfig  `mapstructure:"server"`
	Backend     BackendConfig `mapstructure:"backend"`
	Auth        AuthConfig    `mapstructure:"auth"`
	Media       MediaConfig   `mapstructure:"media"`
	Geocode     GeocodeConfig `mapstructure:"geocode"`
	Polling     PollingConfig `mapstructure:"polling"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains the local HTTP facade configuration.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BackendConfig contains the remote REST backend configuration.
type BackendConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PageLimit      int           `mapstructure:"page_limit"`
}

// AuthConfig contains bearer token configuration. Token storage mechanics
// beyond this are out of scope; the engine takes what it is given.
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// MediaConfig contains the third-party media host configuration used for
// evidence uploads.
type MediaConfig struct {
	UploadURL       string        `mapstructure:"upload_url"`
	UploadPreset    string        `mapstructure:"upload_preset"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

// GeocodeConfig contains the reverse-geocoding service configuration.
type GeocodeConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// PollingConfig contains the dashboard refresh schedules.
type PollingConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	StatsInterval         time.Duration `mapstructure:"stats_interval"`
	NotificationsInterval time.Duration `mapstructure:"notifications_interval"`
	AccidentsInterval     time.Duration `mapstructure:"accidents_interval"`
	CamerasInterval       time.Duration `mapstructure:"cameras_interval"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/trafficshield")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TRAFFICSHIELD")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the fields the engine cannot run without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url not configured")
	}
	if c.Backend.PageLimit <= 0 {
		return fmt.Errorf("backend page_limit must be positive")
	}
	if c.Server.HTTPPort == 0 {
		return fmt.Errorf("server http_port not configured")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// General
	viper.SetDefault("environment", "development")
	viper.SetDefault("debug", false)

	// Server
	viper.SetDefault("server.http_port", 8094)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	// Backend
	viper.SetDefault("backend.base_url", "http://localhost:5000/api")
	viper.SetDefault("backend.request_timeout", "15s")
	viper.SetDefault("backend.page_limit", 10)

	// Media host
	viper.SetDefault("media.upload_url", "")
	viper.SetDefault("media.upload_preset", "")
	viper.SetDefault("media.timeout", "30s")
	viper.SetDefault("media.rate_limit_per_min", 30)

	// Geocoding
	viper.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("geocode.timeout", "10s")
	viper.SetDefault("geocode.cache_ttl", "1h")

	// Polling
	viper.SetDefault("polling.enabled", true)
	viper.SetDefault("polling.stats_interval", "30s")
	viper.SetDefault("polling.notifications_interval", "60s")
	viper.SetDefault("polling.accidents_interval", "30s")
	viper.SetDefault("polling.cameras_interval", "60s")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

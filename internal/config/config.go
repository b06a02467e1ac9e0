package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrMissingMapToken is the configuration error for an unset map tile
// token. The service still starts and reports it as a blocking error.
var ErrMissingMapToken = eris.New("config: map access token is not configured")

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Map       MapConfig       `yaml:"map" mapstructure:"map"`
	Blobs     BlobsConfig     `yaml:"blobs" mapstructure:"blobs"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownSecs   int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// APIConfig configures the upstream places API.
type APIConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MyPlaceID   string  `yaml:"my_place_id" mapstructure:"my_place_id"`
	CacheSize   int     `yaml:"cache_size" mapstructure:"cache_size"`
}

// MapConfig configures the map client.
type MapConfig struct {
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	StyleURL    string `yaml:"style_url" mapstructure:"style_url"`
}

// Validate reports a missing access token as ErrMissingMapToken.
func (m MapConfig) Validate() error {
	if strings.TrimSpace(m.AccessToken) == "" {
		return ErrMissingMapToken
	}
	return nil
}

// BlobsConfig maps data proxy slugs to pre-hosted JSON blob URLs.
type BlobsConfig struct {
	MyPlace      string `yaml:"my_place" mapstructure:"my_place"`
	Competitors  string `yaml:"competitors" mapstructure:"competitors"`
	TradeAreas   string `yaml:"trade_areas" mapstructure:"trade_areas"`
	HomeZipcodes string `yaml:"home_zipcodes" mapstructure:"home_zipcodes"`
	Zipcodes     string `yaml:"zipcodes" mapstructure:"zipcodes"`
}

// URLs returns the blob URLs keyed by slug.
func (b BlobsConfig) URLs() map[string]string {
	return map[string]string{
		"my_place":      b.MyPlace,
		"competitors":   b.Competitors,
		"trade_areas":   b.TradeAreas,
		"home_zipcodes": b.HomeZipcodes,
		"zipcodes":      b.Zipcodes,
	}
}

// DashboardConfig configures session and fetch behavior.
type DashboardConfig struct {
	ViewportLimit      int    `yaml:"viewport_limit" mapstructure:"viewport_limit"`
	ZipcodePriority    string `yaml:"zipcode_priority" mapstructure:"zipcode_priority"`
	SessionIdleMinutes int    `yaml:"session_idle_minutes" mapstructure:"session_idle_minutes"`
	SweepSecs          int    `yaml:"sweep_secs" mapstructure:"sweep_secs"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_secs", 15)
	v.SetDefault("api.base_url", "https://hype-api.vercel.app/api/v1")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.rate_limit", 20)
	v.SetDefault("api.my_place_id", "c660833d-77f0-4bfa-b8f9-4ac38f43ef6a")
	v.SetDefault("api.cache_size", 1024)
	v.SetDefault("map.access_token", "")
	v.SetDefault("map.style_url", "mapbox://styles/mapbox/light-v11")
	v.SetDefault("blobs.my_place", "")
	v.SetDefault("blobs.competitors", "")
	v.SetDefault("blobs.trade_areas", "")
	v.SetDefault("blobs.home_zipcodes", "")
	v.SetDefault("blobs.zipcodes", "")
	v.SetDefault("dashboard.viewport_limit", 100)
	v.SetDefault("dashboard.zipcode_priority", "visible")
	v.SetDefault("dashboard.session_idle_minutes", 60)
	v.SetDefault("dashboard.sweep_secs", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. The map token is not
// checked here; see MapConfig.Validate.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Dashboard.SessionIdleMinutes < 0 {
			problems = append(problems, "dashboard.session_idle_minutes must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if strings.TrimSpace(c.API.BaseURL) == "" {
		problems = append(problems, "api.base_url is required")
	}
	if strings.TrimSpace(c.API.MyPlaceID) == "" {
		problems = append(problems, "api.my_place_id is required")
	}
	if c.API.RateLimit < 0 {
		problems = append(problems, "api.rate_limit must be >= 0")
	}
	if c.Dashboard.ViewportLimit < 1 || c.Dashboard.ViewportLimit > 1000 {
		problems = append(problems, "dashboard.viewport_limit must be between 1 and 1000")
	}
	switch c.Dashboard.ZipcodePriority {
	case "visible", "top", "all":
	default:
		problems = append(problems, "dashboard.zipcode_priority must be one of visible, top, all")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

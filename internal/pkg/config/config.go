package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Map       MapConfig       `mapstructure:"map"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// MapConfig drives the viewport engine and tile addressing.
type MapConfig struct {
	TileURL         string  `mapstructure:"tile_url"`
	TileStyle       string  `mapstructure:"tile_style"`
	MinZoom         int     `mapstructure:"min_zoom"`
	MaxZoom         int     `mapstructure:"max_zoom"`
	DefaultLat      float64 `mapstructure:"default_lat"`
	DefaultLon      float64 `mapstructure:"default_lon"`
	DefaultZoom     int     `mapstructure:"default_zoom"`
	SinglePointZoom int     `mapstructure:"single_point_zoom"`
	DragThresholdPx float64 `mapstructure:"drag_threshold_px"`
	// WheelZoomSign is 1 for scroll-up-zooms-in, -1 to invert.
	WheelZoomSign int `mapstructure:"wheel_zoom_sign"`
}

// AuthConfig holds the single-admin credentials. The password is stored
// as a hex-encoded SHA-256 digest, never in the clear.
type AuthConfig struct {
	AdminUser           string `mapstructure:"admin_user"`
	AdminPasswordSHA256 string `mapstructure:"admin_password_sha256"`
}

type GeocoderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "waylog")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "waylog")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("map.tile_url", "https://tile.openstreetmap.org")
	v.SetDefault("map.tile_style", "standard")
	v.SetDefault("map.min_zoom", 3)
	v.SetDefault("map.max_zoom", 12)
	v.SetDefault("map.default_lat", 48.0)
	v.SetDefault("map.default_lon", 9.0)
	v.SetDefault("map.default_zoom", 5)
	v.SetDefault("map.single_point_zoom", 6)
	v.SetDefault("map.drag_threshold_px", 3)
	v.SetDefault("map.wheel_zoom_sign", 1)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_password_sha256", "")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "waylog/1.0")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "geocode-queue")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: WAYLOG_DATABASE_HOST → database.host
	v.SetEnvPrefix("WAYLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Map.TileURL == "" {
		errs = append(errs, "map.tile_url is required")
	}
	if c.Map.MinZoom >= c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map zoom range invalid: min %d >= max %d", c.Map.MinZoom, c.Map.MaxZoom))
	}
	if c.Map.DefaultZoom < c.Map.MinZoom || c.Map.DefaultZoom > c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map.default_zoom %d outside [%d, %d]", c.Map.DefaultZoom, c.Map.MinZoom, c.Map.MaxZoom))
	}
	if c.Map.WheelZoomSign != 1 && c.Map.WheelZoomSign != -1 {
		errs = append(errs, fmt.Sprintf("map.wheel_zoom_sign must be 1 or -1, got %d", c.Map.WheelZoomSign))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

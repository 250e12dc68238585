package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the gatehouse backend.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Site         SiteConfig         `mapstructure:"site"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Email        EmailConfig        `mapstructure:"email"`
	Maintenance  MaintenanceConfig  `mapstructure:"maintenance"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig controls the per-client request throttle on the public
// endpoints.
type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters. Options carries
// extra driver parameters (sslmode, tls) verbatim into the DSN.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// CacheConfig selects the backend used for rate limiting counters and sweep
// markers.
type CacheConfig struct {
	Backend string `mapstructure:"backend"`
}

// SiteConfig describes the public identity used in notification emails and
// activation links.
type SiteConfig struct {
	Name   string `mapstructure:"name"`
	Domain string `mapstructure:"domain"`
	Scheme string `mapstructure:"scheme"`
}

// RegistrationConfig tunes the registration workflow.
type RegistrationConfig struct {
	Open           bool `mapstructure:"open"`
	ActivationDays int  `mapstructure:"activation_days"`
	PasswordLength int  `mapstructure:"password_length"`
}

// AuthConfig captures inspector authentication settings.
type AuthConfig struct {
	JWT       JWTSettings       `mapstructure:"jwt"`
	Inspector InspectorSettings `mapstructure:"inspector"`
}

// JWTSettings configures the bearer tokens issued to inspectors.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// InspectorSettings names the staff account provisioned at start-up. The
// account is only created when it does not exist yet and the password is set.
type InspectorSettings struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Backend string     `mapstructure:"backend"`
	From    string     `mapstructure:"from"`
	ReplyTo string     `mapstructure:"reply_to"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MaintenanceConfig controls the scheduled registration sweeps. DeleteRejected
// unschedules the rejected sweep when false so rejected registrations stay
// around as review history.
type MaintenanceConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	ExpiredSchedule  string `mapstructure:"expired_schedule"`
	RejectedSchedule string `mapstructure:"rejected_schedule"`
	DeleteRejected   bool   `mapstructure:"delete_rejected"`
}

// MonitoringConfig gates the Prometheus scrape endpoint.
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("GATEHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.max_requests", 60)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/gatehouse.sqlite")

	v.SetDefault("cache.backend", CacheBackendMemory)

	v.SetDefault("site.name", "Gatehouse")
	v.SetDefault("site.domain", "localhost:8000")
	v.SetDefault("site.scheme", "http")

	v.SetDefault("registration.open", true)
	v.SetDefault("registration.activation_days", 7)
	v.SetDefault("registration.password_length", 10)

	v.SetDefault("auth.jwt.issuer", "gatehouse")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")
	v.SetDefault("auth.inspector.username", "inspector")

	v.SetDefault("email.backend", "log")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.expired_schedule", "@daily")
	v.SetDefault("maintenance.rejected_schedule", "@weekly")
	v.SetDefault("maintenance.delete_rejected", true)

	v.SetDefault("monitoring.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Package config loads issueflow configuration from an optional YAML file,
// ISSUEFLOW_* environment variables, and the legacy variable names the
// original deployment used.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key when read from the environment.
const EnvPrefix = "ISSUEFLOW"

// Config is the complete application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Email     EmailConfig     `mapstructure:"email"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
	Compat    CompatConfig    `mapstructure:"compat"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// IsProduction reports whether the app runs with production hardening.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	CORSOrigin     string        `mapstructure:"cors_origin"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type AuthConfig struct {
	AccessTokenSecret  string        `mapstructure:"access_token_secret"`
	RefreshTokenSecret string        `mapstructure:"refresh_token_secret"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	Issuer             string        `mapstructure:"issuer"`
	RefreshStore       string        `mapstructure:"refresh_store"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	CookieDomain       string        `mapstructure:"cookie_domain"`
	LoginRateLimit     int           `mapstructure:"login_rate_limit"`
	PasswordMinLength  int           `mapstructure:"password_min_length"`
}

type EmailConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	AuthType   string `mapstructure:"auth_type"`
	TLS        bool   `mapstructure:"tls"`
	TLSMode    string `mapstructure:"tls_mode"`
	SkipVerify bool   `mapstructure:"skip_verify"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SchedulerConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Timezone          string   `mapstructure:"timezone"`
	LicenseSweep      string   `mapstructure:"license_sweep"`
	ExpiryHorizonDays int      `mapstructure:"expiry_horizon_days"`
	Jobs              []string `mapstructure:"jobs"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CompatConfig toggles behaviours kept for clients written against the
// original service.
type CompatConfig struct {
	// EmptyListNotFound answers 404 instead of 200 [] for empty list endpoints.
	EmptyListNotFound bool `mapstructure:"empty_list_not_found"`
}

// legacyEnv maps configuration keys to the bare variable names the original
// deployment exported.
var legacyEnv = map[string][]string{
	"auth.access_token_secret":  {"ACCESS_TOKEN_SECRET"},
	"auth.refresh_token_secret": {"REFRESH_TOKEN_SECRET"},
	"auth.access_token_ttl":     {"ACCESS_TOKEN_EXPIRY"},
	"auth.refresh_token_ttl":    {"REFRESH_TOKEN_EXPIRY"},
	"server.port":               {"PORT"},
	"server.cors_origin":        {"CORS_ORIGIN"},
	"database.host":             {"DB_HOST"},
	"database.port":             {"DB_PORT"},
	"database.user":             {"DB_USER"},
	"database.password":         {"DB_PASSWORD"},
	"email.from":                {"EMAIL_FROM"},
	"email.smtp.user":           {"EMAIL_USERNAME"},
	"email.smtp.password":       {"EMAIL_PASSWORD"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "issueflow")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_body_bytes", 50<<20)
	v.SetDefault("server.cors_origin", "")
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "issueflow")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("auth.access_token_ttl", 24*time.Hour)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.issuer", "issueflow")
	v.SetDefault("auth.refresh_store", "sql")
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.password_min_length", 8)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp.host", "smtp.gmail.com")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.auth_type", "plain")
	v.SetDefault("email.smtp.tls_mode", "starttls")

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.license_sweep", "0 0 * * *")
	v.SetDefault("scheduler.expiry_horizon_days", 15)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("compat.empty_list_not_found", false)
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment are consulted.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("issueflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/issueflow")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationHook,
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants and fills generated development secrets.
func (c *Config) Validate() error {
	if c.Auth.AccessTokenSecret == "" || c.Auth.RefreshTokenSecret == "" {
		if c.App.IsProduction() {
			return errors.New("auth.access_token_secret and auth.refresh_token_secret are required in production")
		}
		if c.Auth.AccessTokenSecret == "" {
			c.Auth.AccessTokenSecret = randomSecret()
		}
		if c.Auth.RefreshTokenSecret == "" {
			c.Auth.RefreshTokenSecret = randomSecret()
		}
	}
	if c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	switch c.Auth.RefreshStore {
	case "sql", "redis":
	default:
		return fmt.Errorf("unknown refresh store %q", c.Auth.RefreshStore)
	}
	if c.Scheduler.ExpiryHorizonDays < 0 {
		return errors.New("scheduler.expiry_horizon_days must not be negative")
	}
	if c.Database.Driver == "" {
		return errors.New("database.driver is required")
	}
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("config: generate secret: %v", err))
	}
	return hex.EncodeToString(b)
}

// durationHook accepts Go durations as well as the day suffix used by the
// legacy token expiry variables ("1d", "7d").
func durationHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	return ParseDuration(data.(string))
}

// ParseDuration parses a Go duration or a whole number of days ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// Package config loads and validates application configuration. An optional
// TOML file provides base values; environment variables override it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string `toml:"port"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `toml:"database_url"`

	// LogLevel controls the minimum log level: debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	// LogFormat is "json" (default) or "text" for human-readable local logs.
	LogFormat string `toml:"log_format"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `toml:"cors_origins"`

	// MaxBodyBytes caps request bodies. Defaults to 64 KiB.
	MaxBodyBytes int64 `toml:"max_body_bytes"`

	Auth AuthConfig `toml:"auth"`
	ZTM  ZTMConfig  `toml:"ztm"`
}

// AuthConfig configures access-token verification.
type AuthConfig struct {
	// JWTSecret is the identity provider's HS256 signing secret. Required.
	JWTSecret string `toml:"jwt_secret"`
	// JWTAudience is the expected aud claim; empty disables the check.
	JWTAudience string `toml:"jwt_audience"`
	// CookieName carries the token for browser clients.
	CookieName string `toml:"cookie_name"`
	// RedisURL backs logout revocations. Empty keeps them in memory.
	RedisURL string `toml:"redis_url"`
}

// ZTMConfig configures the upstream feed gateway. Zero durations fall back
// to the gateway's built-in defaults.
type ZTMConfig struct {
	StopsURL      string   `toml:"stops_url"`
	DeparturesURL string   `toml:"departures_url"`
	RateLimit     float64  `toml:"rate_limit"`
	RateBurst     int      `toml:"rate_burst"`
	StopsTTL      Duration `toml:"stops_ttl"`
	StopsTimeout  Duration `toml:"stops_timeout"`
	DeparturesTTL Duration `toml:"departures_ttl"`
	// DeparturesTimeout applies to single-stop requests.
	DeparturesTimeout Duration `toml:"departures_timeout"`
	// AllDeparturesTimeout applies to the all-stops request.
	AllDeparturesTimeout Duration `toml:"all_departures_timeout"`
}

// Duration is a time.Duration read from strings such as "20s" or "6h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func defaults() Config {
	return Config{
		Port:         "8080",
		LogLevel:     "info",
		LogFormat:    "json",
		CORSOrigins:  []string{"http://localhost:4321"},
		MaxBodyBytes: 64 << 10,
		Auth: AuthConfig{
			JWTAudience: "authenticated",
			CookieName:  "sb-access-token",
		},
		ZTM: ZTMConfig{
			RateLimit: 5,
			RateBurst: 10,
		},
	}
}

// Load builds the configuration. path names an optional TOML file; when
// empty, CONFIG_FILE is consulted. Environment variables take precedence
// over the file. Returns an error listing every required value that is
// missing.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	var errs []string
	setString(&cfg.Port, "PORT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	errs = appendErr(errs, setInt64(&cfg.MaxBodyBytes, "MAX_BODY_BYTES"))

	setString(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setString(&cfg.Auth.JWTAudience, "AUTH_JWT_AUDIENCE")
	setString(&cfg.Auth.CookieName, "AUTH_COOKIE_NAME")
	setString(&cfg.Auth.RedisURL, "REDIS_URL")

	setString(&cfg.ZTM.StopsURL, "ZTM_STOPS_URL")
	setString(&cfg.ZTM.DeparturesURL, "ZTM_DEPARTURES_URL")
	errs = appendErr(errs, setFloat(&cfg.ZTM.RateLimit, "ZTM_RATE_LIMIT"))
	errs = appendErr(errs, setInt(&cfg.ZTM.RateBurst, "ZTM_RATE_BURST"))
	errs = appendErr(errs, setDuration(&cfg.ZTM.StopsTTL, "ZTM_STOPS_TTL"))
	errs = appendErr(errs, setDuration(&cfg.ZTM.StopsTimeout, "ZTM_STOPS_TIMEOUT"))
	errs = appendErr(errs, setDuration(&cfg.ZTM.DeparturesTTL, "ZTM_DEPARTURES_TTL"))
	errs = appendErr(errs, setDuration(&cfg.ZTM.DeparturesTimeout, "ZTM_DEPARTURES_TIMEOUT"))
	errs = appendErr(errs, setDuration(&cfg.ZTM.AllDeparturesTimeout, "ZTM_ALL_DEPARTURES_TIMEOUT"))
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(errs, "; "))
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required configuration not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// setString overwrites *dst with the environment variable named by key when
// it is set and non-empty.
func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	dst.Duration = d
	return nil
}

func appendErr(errs []string, err error) []string {
	if err != nil {
		return append(errs, err.Error())
	}
	return errs
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

// Package config loads Flickbox settings from defaults, an optional YAML
// file, the environment and command-line flags, in increasing precedence.
package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/flickbox/flickbox/internal/auth"
	"github.com/flickbox/flickbox/internal/logging"
)

// EnvProduction is the environment name that hides error detail from clients.
const EnvProduction = "production"

// Config is the complete service configuration.
type Config struct {
	App      AppConfig      `koanf:"app"`
	HTTP     HTTPConfig     `koanf:"http"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Auth     AuthConfig     `koanf:"auth"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Environment string `koanf:"environment"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Port        int    `koanf:"port"`
	FrontendURL string `koanf:"frontend_url"`
}

// DatabaseConfig configures the PostgreSQL connection. URL, when set,
// replaces the individual connection fields.
type DatabaseConfig struct {
	URL            string        `koanf:"url"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name"`
	SSLMode        string        `koanf:"sslmode"`
	MaxConns       int32         `koanf:"max_conns"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	QueryTimeout   time.Duration `koanf:"query_timeout"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// AuthConfig selects the password hasher.
type AuthConfig struct {
	Hasher     string `koanf:"hasher"`
	BcryptCost int    `koanf:"bcrypt_cost"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		App:  AppConfig{Environment: "development"},
		HTTP: HTTPConfig{Port: 5000, FrontendURL: "http://localhost:3000"},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Name:           "flickbox",
			SSLMode:        "prefer",
			MaxConns:       10,
			ConnectTimeout: 30 * time.Second,
			QueryTimeout:   10 * time.Second,
		},
		Log:  LogConfig{Format: "json", Level: "info"},
		Auth: AuthConfig{Hasher: auth.SchemeBcrypt, BcryptCost: 10},
	}
}

// envKeys maps environment variables to configuration keys.
var envKeys = map[string]string{
	"DB_HOST":            "database.host",
	"DB_PORT":            "database.port",
	"DB_USER":            "database.user",
	"DB_PASSWORD":        "database.password",
	"DB_NAME":            "database.name",
	"DB_SSLMODE":         "database.sslmode",
	"DB_MAX_CONNS":       "database.max_conns",
	"DB_CONNECT_TIMEOUT": "database.connect_timeout",
	"DB_QUERY_TIMEOUT":   "database.query_timeout",
	"DATABASE_URL":       "database.url",
	"FRONTEND_URL":       "http.frontend_url",
	"PORT":               "http.port",
	"APP_ENV":            "app.environment",
	"NODE_ENV":           nodeEnvKey,
	"LOG_FORMAT":         "log.format",
	"LOG_LEVEL":          "log.level",
	"METRICS_ADDR":       "metrics.addr",
	"AUTH_HASHER":        "auth.hasher",
	"AUTH_BCRYPT_COST":   "auth.bcrypt_cost",
}

// nodeEnvKey holds NODE_ENV so APP_ENV can take precedence over it.
const nodeEnvKey = "app.node_env"

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"port":         "http.port",
	"frontend-url": "http.frontend_url",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"env":          "app.environment",
}

// requiredDatabaseKeys are the settings reported by Warnings when neither
// they nor database.url were supplied.
var requiredDatabaseKeys = []struct {
	key, env string
}{
	{"database.host", "DB_HOST"},
	{"database.port", "DB_PORT"},
	{"database.user", "DB_USER"},
	{"database.password", "DB_PASSWORD"},
	{"database.name", "DB_NAME"},
}

// Loaded is a Config together with which keys were explicitly supplied.
type Loaded struct {
	Config
	k *koanf.Koanf
}

// Load reads configPath (optional) then the environment then the changed
// flags in flags (may be nil), over the built-in defaults.
func Load(configPath string, flags *pflag.FlagSet) (*Loaded, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read config file").
				With("path", configPath).
				Wrap(err)
		}
	}

	envProvider := env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		key, ok := envKeys[name]
		if !ok || value == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read environment").Wrap(err)
	}

	if flags != nil {
		flagProvider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(flagProvider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read flags").Wrap(err)
		}
	}

	if !k.Exists("app.environment") && k.String(nodeEnvKey) != "" {
		if err := k.Set("app.environment", k.String(nodeEnvKey)); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "apply NODE_ENV").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}

	return &Loaded{Config: cfg, k: k}, nil
}

// Warnings lists missing database settings. They are reported at startup
// but never stop the server; storage calls fail at request time instead.
func (l *Loaded) Warnings() []string {
	if l.k == nil || l.k.String("database.url") != "" {
		return nil
	}
	var missing []string
	for _, rk := range requiredDatabaseKeys {
		if l.k.String(rk.key) == "" {
			missing = append(missing, rk.env)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []string{
		"database settings not set: " + strings.Join(missing, ", ") +
			"; register and login will fail until the database is reachable",
	}
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return oops.Code("CONFIG_INVALID").With("key", "http.port").Errorf("port must be 0-65535, got %d", c.HTTP.Port)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Wrap(err)
	}
	switch c.Auth.Hasher {
	case auth.SchemeBcrypt, auth.SchemeArgon2id:
	default:
		return oops.Code("CONFIG_INVALID").With("key", "auth.hasher").
			Errorf("hasher must be %q or %q, got %q", auth.SchemeBcrypt, auth.SchemeArgon2id, c.Auth.Hasher)
	}
	// The bcrypt verifier is built for every hasher, so the cost is always checked.
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return oops.Code("CONFIG_INVALID").With("key", "auth.bcrypt_cost").
			Errorf("bcrypt cost must be 4-31, got %d", c.Auth.BcryptCost)
	}
	if c.Database.MaxConns <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "database.max_conns").
			Errorf("max conns must be positive, got %d", c.Database.MaxConns)
	}
	if c.Database.ConnectTimeout < 0 || c.Database.QueryTimeout < 0 {
		return oops.Code("CONFIG_INVALID").With("key", "database").Errorf("timeouts must not be negative")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, EnvProduction)
}

// ListenAddr is the address the public API binds to.
func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.HTTP.Port)
}

// DatabaseDSN returns database.url when set, otherwise a postgres:// URL
// assembled from the individual fields.
func (c Config) DatabaseDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:   "/" + c.Database.Name,
	}
	switch {
	case c.Database.User != "" && c.Database.Password != "":
		u.User = url.UserPassword(c.Database.User, c.Database.Password)
	case c.Database.User != "":
		u.User = url.User(c.Database.User)
	}
	q := url.Values{}
	if c.Database.SSLMode != "" {
		q.Set("sslmode", c.Database.SSLMode)
	}
	if c.Database.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.Database.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

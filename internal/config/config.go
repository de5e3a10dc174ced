// Copyright 2025 The Tradebench Authors
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Broker   BrokerConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical
	JWTSecret       string // symmetric signing secret, externally supplied
	TokenLifetime   int    // session token lifetime in hours
	CookieName      string // session token cookie name
	UserInfoCookie  string // client-readable user info cookie name
	StateHashKey    string // 32-byte hex key signing the OAuth state cookie
	LoginRatePerMin int    // login/register attempts per minute per IP
}

type BrokerConfig struct { //nolint:govet // fieldalignment not critical
	TokenURL  string // broker token endpoint
	DialogURL string // broker authorization dialog endpoint
	Timeout   int    // outbound call timeout in seconds
}

// TokenDuration returns the session token lifetime as a duration.
func (c *AuthConfig) TokenDuration() time.Duration {
	return time.Duration(c.TokenLifetime) * time.Hour
}

// CallTimeout returns the outbound broker call timeout as a duration.
func (c *BrokerConfig) CallTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			JWTSecret:       cmd.String("jwt-secret"),
			TokenLifetime:   int(cmd.Int("token-lifetime")),
			CookieName:      cmd.String("cookie-name"),
			UserInfoCookie:  cmd.String("user-info-cookie"),
			StateHashKey:    cmd.String("state-hash-key"),
			LoginRatePerMin: int(cmd.Int("login-rate-limit")),
		},
		Broker: BrokerConfig{
			TokenURL:  cmd.String("broker-token-url"),
			DialogURL: cmd.String("broker-dialog-url"),
			Timeout:   int(cmd.Int("broker-timeout")),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// CookieSecure reports whether cookies should carry the Secure attribute.
func (c *Config) CookieSecure() bool {
	return strings.HasPrefix(c.Server.BaseURL, "https://")
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	scheme := "http"
	if !IsLocalhost(host) {
		scheme = "https"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g. app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/app.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Symmetric secret for signing session tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("auth.jwt_secret", configFile)),
		},
		&cli.IntFlag{
			Name:    "token-lifetime",
			Value:   24,
			Usage:   "Session token lifetime in hours",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TOKEN_LIFETIME"), toml.TOML("auth.token_lifetime", configFile)),
		},
		&cli.StringFlag{
			Name:    "cookie-name",
			Value:   "token",
			Usage:   "Session token cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("COOKIE_NAME"), toml.TOML("auth.cookie_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "user-info-cookie",
			Value:   "user_info",
			Usage:   "Client-readable user info cookie name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("USER_INFO_COOKIE"), toml.TOML("auth.user_info_cookie", configFile)),
		},
		&cli.StringFlag{
			Name:    "state-hash-key",
			Usage:   "Hash key for the signed OAuth state cookie (32-byte hex)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("STATE_HASH_KEY"), toml.TOML("auth.state_hash_key", configFile)),
		},
		&cli.IntFlag{
			Name:    "login-rate-limit",
			Value:   10,
			Usage:   "Login/register attempts per minute per IP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOGIN_RATE_LIMIT"), toml.TOML("auth.login_rate_limit", configFile)),
		},
		&cli.StringFlag{
			Name:    "broker-token-url",
			Value:   "https://api.upstox.com/v2/login/authorization/token",
			Usage:   "Broker token endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_TOKEN_URL"), toml.TOML("broker.token_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "broker-dialog-url",
			Value:   "https://api.upstox.com/v2/login/authorization/dialog",
			Usage:   "Broker authorization dialog endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_DIALOG_URL"), toml.TOML("broker.dialog_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "broker-timeout",
			Value:   5,
			Usage:   "Outbound broker call timeout in seconds",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_TIMEOUT"), toml.TOML("broker.timeout", configFile)),
		},
	}
}

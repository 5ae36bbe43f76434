// Package config handles configuration for the development server,
// including defaults, a file overlay, the environment and command-line flags.
package config

import "time"

// Config holds runtime settings for the development server.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the HTTP API.
//   - EndpointAddrGRPC: bind address of the gRPC endpoint; empty disables it.
//   - DatabaseDSN: PostgreSQL DSN; empty keeps accounts and tokens in memory.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - RotateRefreshTokens: issue a new refresh token on every refresh and
//     reject reuse of a spent one.
//   - SingleSession: a login invalidates the user's earlier refresh tokens.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrHTTP             string        `env:"DEVSERVER_ADDR"`
	EndpointAddrGRPC             string        `env:"DEVSERVER_GRPC_ADDR"`
	DatabaseDSN                  string        `env:"DEVSERVER_DATABASE_DSN"`
	SecretKey                    string        `env:"DEVSERVER_SECRET_KEY"`
	AccessTokenValidityDuration  time.Duration `env:"DEVSERVER_ACCESS_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"DEVSERVER_REFRESH_TTL"`
	RotateRefreshTokens          bool          `env:"DEVSERVER_ROTATE_REFRESH"`
	SingleSession                bool          `env:"DEVSERVER_SINGLE_SESSION"`
	LogLevel                     string        `env:"DEVSERVER_LOG_LEVEL"`
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":9090"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 1 * time.Minute
	c.RefreshTokenValidityDuration = 60 * time.Minute
	c.RotateRefreshTokens = true
	c.SingleSession = false
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line
// flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

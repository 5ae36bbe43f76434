package config

import "time"

// Config holds runtime settings for the sessionkeeper client.
//
// Fields:
//   - BaseURL: API root; LoginPath and RefreshPath are relative to it.
//   - GRPCAddr: gRPC endpoint used by the health check; empty disables it.
//   - LandingURL / AccountURL: navigation targets after logout and for
//     billing, upgrade or overload notices.
//   - Store*: credential store backend and its connection settings.
//   - Passphrase: when set, stored tokens are sealed at rest.
//   - TokenLeeway: access tokens expiring within it are refreshed early.
//
// Units: all durations are time.Duration (e.g., 15*time.Second).
type Config struct {
	BaseURL        string        `env:"SESSIONKEEPER_BASE_URL"`
	GRPCAddr       string        `env:"SESSIONKEEPER_GRPC_ADDR"`
	LoginPath      string        `env:"SESSIONKEEPER_LOGIN_PATH"`
	RefreshPath    string        `env:"SESSIONKEEPER_REFRESH_PATH"`
	LandingURL     string        `env:"SESSIONKEEPER_LANDING_URL"`
	AccountURL     string        `env:"SESSIONKEEPER_ACCOUNT_URL"`
	RequestTimeout time.Duration `env:"SESSIONKEEPER_REQUEST_TIMEOUT"`
	RefreshTimeout time.Duration `env:"SESSIONKEEPER_REFRESH_TIMEOUT"`
	TokenLeeway    time.Duration `env:"SESSIONKEEPER_TOKEN_LEEWAY"`

	StoreDriver   string `env:"SESSIONKEEPER_STORE"`
	SQLiteDSN     string `env:"SESSIONKEEPER_SQLITE_DSN"`
	RedisAddr     string `env:"SESSIONKEEPER_REDIS_ADDR"`
	RedisPassword string `env:"SESSIONKEEPER_REDIS_PASSWORD"`
	RedisDB       int    `env:"SESSIONKEEPER_REDIS_DB"`
	RedisPrefix   string `env:"SESSIONKEEPER_REDIS_PREFIX"`
	Passphrase    string `env:"SESSIONKEEPER_PASSPHRASE"`

	LogLevel    string `env:"SESSIONKEEPER_LOG_LEVEL"`
	MetricsAddr string `env:"SESSIONKEEPER_METRICS_ADDR"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8080/api"
	c.GRPCAddr = "127.0.0.1:9090"
	c.LoginPath = "/auth/user"
	c.RefreshPath = "/auth/refresh-token"
	c.LandingURL = "/"
	c.AccountURL = "/account"
	c.RequestTimeout = 30 * time.Second
	c.RefreshTimeout = 15 * time.Second
	c.TokenLeeway = 0

	c.StoreDriver = "sqlite"
	c.SQLiteDSN = "file:sessionkeeper.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "sessionkeeper:"

	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if given), the environment and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

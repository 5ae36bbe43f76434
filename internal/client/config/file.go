package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used exclusively for file unmarshalling. Empty fields
// leave the current value alone.
type FileConfig struct {
	BaseURL        string         `json:"base_url" yaml:"base_url"`
	GRPCAddr       string         `json:"grpc_addr" yaml:"grpc_addr"`
	LoginPath      string         `json:"login_path" yaml:"login_path"`
	RefreshPath    string         `json:"refresh_path" yaml:"refresh_path"`
	LandingURL     string         `json:"landing_url" yaml:"landing_url"`
	AccountURL     string         `json:"account_url" yaml:"account_url"`
	RequestTimeout timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	RefreshTimeout timex.Duration `json:"refresh_timeout" yaml:"refresh_timeout"`
	TokenLeeway    timex.Duration `json:"token_leeway" yaml:"token_leeway"`

	StoreDriver   string `json:"store" yaml:"store"`
	SQLiteDSN     string `json:"sqlite_dsn" yaml:"sqlite_dsn"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `json:"redis_prefix" yaml:"redis_prefix"`
	Passphrase    string `json:"passphrase" yaml:"passphrase"`

	LogLevel    string `json:"log_level" yaml:"log_level"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
}

// parseFile overlays cfg with the file named by -c / -config. Panics on read
// or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.BaseURL, fc.BaseURL)
	setString(&cfg.GRPCAddr, fc.GRPCAddr)
	setString(&cfg.LoginPath, fc.LoginPath)
	setString(&cfg.RefreshPath, fc.RefreshPath)
	setString(&cfg.LandingURL, fc.LandingURL)
	setString(&cfg.AccountURL, fc.AccountURL)
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.RefreshTimeout.Duration > 0 {
		cfg.RefreshTimeout = fc.RefreshTimeout.Duration
	}
	if fc.TokenLeeway.Duration > 0 {
		cfg.TokenLeeway = fc.TokenLeeway.Duration
	}

	setString(&cfg.StoreDriver, fc.StoreDriver)
	setString(&cfg.SQLiteDSN, fc.SQLiteDSN)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.RedisPassword, fc.RedisPassword)
	if fc.RedisDB != 0 {
		cfg.RedisDB = fc.RedisDB
	}
	setString(&cfg.RedisPrefix, fc.RedisPrefix)
	setString(&cfg.Passphrase, fc.Passphrase)

	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// FileConfig is an intermediate DTO used only for reading config files.
// Durations use timex.Duration, so both "1m" and integer nanoseconds are
// accepted. Pointer fields distinguish "false" from "absent".
type FileConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	RotateRefreshTokens          *bool          `json:"rotate_refresh_tokens" yaml:"rotate_refresh_tokens"`
	SingleSession                *bool          `json:"single_session" yaml:"single_session"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays config with the file named by -c / -config. Files
// ending in .yaml or .yml are YAML, anything else JSON. Panics on read or
// decode errors.
func parseFile(config *Config) {
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

	if fc.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = fc.EndpointAddrHTTP
	}
	if fc.EndpointAddrGRPC != "" {
		config.EndpointAddrGRPC = fc.EndpointAddrGRPC
	}
	if fc.DatabaseDSN != "" {
		config.DatabaseDSN = fc.DatabaseDSN
	}
	if fc.SecretKey != "" {
		config.SecretKey = fc.SecretKey
	}
	if fc.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	if fc.RotateRefreshTokens != nil {
		config.RotateRefreshTokens = *fc.RotateRefreshTokens
	}
	if fc.SingleSession != nil {
		config.SingleSession = *fc.SingleSession
	}
	if fc.LogLevel != "" {
		config.LogLevel = fc.LogLevel
	}
}

// parseEnv overlays config with DEVSERVER_* variables.
func parseEnv(config *Config) {
	if err := cleanenv.ReadEnv(config); err != nil {
		panic(err)
	}
}

// Package config loads runtime configuration for the sessionkeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Environment variables (SESSIONKEEPER_*), read with cleanenv.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   API base URL
//	-s string   credential store: memory, sqlite or redis
//	-d string   SQLite DSN
//	-r string   Redis address
//	-k string   passphrase sealing stored tokens
//	-t int      refresh timeout (seconds)
//	-l int      token expiry leeway (seconds)
//	-v string   log level
//	-m string   metrics listen address (empty disables)
//
// # File schema
//
// Durations use timex.Duration, so values can be either strings like "15s"
// or integer nanoseconds:
//
//	{
//	  "base_url": "https://app.example.com/api",
//	  "refresh_timeout": "15s",
//	  "store": "redis",
//	  "redis_addr": "127.0.0.1:6379"
//	}
package config

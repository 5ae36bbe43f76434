package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays cfg with SESSIONKEEPER_* variables. Unset variables keep
// the current value. Panics on malformed values.
func parseEnv(cfg *Config) {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		panic(err)
	}
}

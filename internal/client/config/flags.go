package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-s", "-d", "-r", "-k", "-t", "-l", "-v", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "API base URL")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "gRPC endpoint address")
	fs.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "credential store (memory, sqlite, redis)")
	fs.StringVar(&cfg.SQLiteDSN, "d", cfg.SQLiteDSN, "SQLite DSN")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.Passphrase, "k", cfg.Passphrase, "passphrase sealing stored tokens")
	refreshTimeout := fs.Int("t", int(cfg.RefreshTimeout.Seconds()), "refresh timeout (in seconds)")
	leeway := fs.Int("l", int(cfg.TokenLeeway.Seconds()), "token expiry leeway (in seconds)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RefreshTimeout = time.Duration(*refreshTimeout) * time.Second
	cfg.TokenLeeway = time.Duration(*leeway) * time.Second
}

package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":9090")
//	-d string   PostgreSQL DSN (empty: in-memory)
//	-s string   JWT HMAC secret key
//	-t int      access token validity, seconds
//	-r int      refresh token validity, minutes
//	-o bool     rotate refresh tokens (use -o=false to disable)
//	-u bool     single session per user (use -u=false to disable)
//	-v string   log level
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-t", "-r", "-o", "-u", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the gRPC endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Seconds()), "access token validity (in seconds)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.BoolVar(&config.RotateRefreshTokens, "o", config.RotateRefreshTokens, "rotate refresh tokens")
	fs.BoolVar(&config.SingleSession, "u", config.SingleSession, "single session per user")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Second
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}

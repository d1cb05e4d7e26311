package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

var knownFlags = []string{"-a", "-g", "-d", "-m", "-x", "-e", "-s", "-k", "-t", "-r", "-b", "-n", "-l"}

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-a string   HTTP listen address (e.g. ":3000")
//	-g string   gRPC listen address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-m string   store backend: postgres | memory
//	-x string   refresh token store: postgres | redis | memory
//	-e string   Redis address
//	-s string   JWT signing secret
//	-k string   JWT refresh signing secret
//	-t duration access token lifetime ("15m")
//	-r duration refresh token lifetime ("7d")
//	-b int      bcrypt cost
//	-n int      minimum password length
//	-l string   log level
//
// Unknown arguments are filtered out with flagx.FilterArgs first so other
// components may share the command line.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("gophauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP listen address")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC listen address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StoreBackend, "m", config.StoreBackend, "store backend")
	fs.StringVar(&config.RefreshStore, "x", config.RefreshStore, "refresh token store")
	fs.StringVar(&config.RedisAddr, "e", config.RedisAddr, "redis address")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret")
	fs.StringVar(&config.RefreshSecretKey, "k", config.RefreshSecretKey, "JWT refresh secret")
	fs.Func("t", "access token lifetime", durationFlag(&config.AccessTokenTTL))
	fs.Func("r", "refresh token lifetime", durationFlag(&config.RefreshTokenTTL))
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.IntVar(&config.PasswordMinLength, "n", config.PasswordMinLength, "minimum password length")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}

func durationFlag(dst *time.Duration) func(string) error {
	return func(s string) error {
		d, err := timex.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

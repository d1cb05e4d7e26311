package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// parseEnv overlays environment variables onto config. Durations use
// timex.ParseDuration, so "7d" and "15m" are both accepted. PORT sets the
// HTTP listen address to ":<port>".
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		d, err := timex.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
		return nil
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
		return nil
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		config.HTTPAddr = ":" + port
	}
	str("HTTP_ADDRESS", &config.HTTPAddr)
	str("GRPC_ADDRESS", &config.GRPCAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("STORE_BACKEND", &config.StoreBackend)
	str("REFRESH_STORE", &config.RefreshStore)
	str("REDIS_ADDR", &config.RedisAddr)
	str("REDIS_PREFIX", &config.RedisPrefix)
	str("JWT_SECRET", &config.SecretKey)
	str("JWT_REFRESH_SECRET", &config.RefreshSecretKey)
	str("LOG_LEVEL", &config.LogLevel)
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		config.CORSAllowedOrigins = splitList(v)
	}

	for name, dst := range map[string]*time.Duration{
		"JWT_ACCESS_EXPIRATION":  &config.AccessTokenTTL,
		"JWT_REFRESH_EXPIRATION": &config.RefreshTokenTTL,
		"REDIS_RETENTION":        &config.RedisRetention,
		"SHUTDOWN_TIMEOUT":       &config.ShutdownTimeout,
	} {
		if err := dur(name, dst); err != nil {
			return err
		}
	}
	if err := num("BCRYPT_COST", &config.BcryptCost); err != nil {
		return err
	}
	if err := num("PASSWORD_MIN_LENGTH", &config.PasswordMinLength); err != nil {
		return err
	}

	return nil
}

// splitList splits a comma-separated value and drops empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Duration
// fields accept strings such as "15m" or "7d" as well as numbers of
// milliseconds. Absent fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr           *string         `json:"http_addr"`
	GRPCAddr           *string         `json:"grpc_addr"`
	DatabaseDSN        *string         `json:"database_dsn"`
	StoreBackend       *string         `json:"store_backend"`
	RefreshStore       *string         `json:"refresh_store"`
	RedisAddr          *string         `json:"redis_addr"`
	RedisPrefix        *string         `json:"redis_prefix"`
	RedisRetention     *timex.Duration `json:"redis_retention"`
	SecretKey          *string         `json:"secret_key"`
	RefreshSecretKey   *string         `json:"refresh_secret_key"`
	AccessTokenTTL     *timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL    *timex.Duration `json:"refresh_token_ttl"`
	BcryptCost         *int            `json:"bcrypt_cost"`
	PasswordMinLength  *int            `json:"password_min_length"`
	CORSAllowedOrigins *[]string       `json:"cors_allowed_origins"`
	LogLevel           *string         `json:"log_level"`
	ShutdownTimeout    *timex.Duration `json:"shutdown_timeout"`
}

// parseJSON overlays values from the JSON file at path onto config.
func parseJSON(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.RefreshStore, c.RefreshStore)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPrefix, c.RedisPrefix)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.RefreshSecretKey, c.RefreshSecretKey)
	setString(&config.LogLevel, c.LogLevel)

	if c.RedisRetention != nil {
		config.RedisRetention = c.RedisRetention.Duration
	}
	if c.AccessTokenTTL != nil {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL != nil {
		config.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = *c.CORSAllowedOrigins
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	if c.PasswordMinLength != nil {
		config.PasswordMinLength = *c.PasswordMinLength
	}

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

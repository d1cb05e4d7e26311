package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func validConfig() *Config {
	c := &Config{}
	c.LoadDefaults()
	c.SecretKey = "secret"
	return c
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":3000", c.HTTPAddr)
	assert.Equal(t, ":50051", c.GRPCAddr)
	assert.Equal(t, BackendPostgres, c.StoreBackend)
	assert.Equal(t, BackendPostgres, c.EffectiveRefreshStore())
	assert.Equal(t, 15*time.Minute, c.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenTTL)
	assert.Equal(t, 12, c.BcryptCost)
	assert.Equal(t, 8, c.PasswordMinLength)
	assert.Equal(t, []string{"*"}, c.CORSAllowedOrigins)
	assert.Empty(t, c.SecretKey)
}

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := Load(nil, envOf(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing secret is required")
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"secret_key":        "from-json",
		"access_token_ttl":  "5m",
		"refresh_token_ttl": "2d",
		"store_backend":     "memory",
	})
	env := envOf(map[string]string{
		"JWT_SECRET":             "from-env",
		"JWT_REFRESH_EXPIRATION": "3d",
	})
	args := []string{"-c", path, "-t", "1m", "-unknown", "x"}

	cfg, err := Load(args, env)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SecretKey)
	assert.Equal(t, time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 3*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
}

func TestLoad_RefreshTTLDefaultsToSevenDays(t *testing.T) {
	cfg, err := Load(nil, envOf(map[string]string{"JWT_SECRET": "s", "STORE_BACKEND": "memory"}))
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load([]string{"-config", "/does/not/exist.json"}, envOf(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty secret", func(c *Config) { c.SecretKey = "" }, "signing secret"},
		{"zero access ttl", func(c *Config) { c.AccessTokenTTL = 0 }, "access token ttl"},
		{"negative refresh ttl", func(c *Config) { c.RefreshTokenTTL = -time.Second }, "refresh token ttl"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "mongo" }, `unknown store backend "mongo"`},
		{"unknown refresh store", func(c *Config) { c.RefreshStore = "etcd" }, `unknown refresh store "etcd"`},
		{"redis without address", func(c *Config) { c.RefreshStore = BackendRedis; c.RedisAddr = "" }, "REDIS_ADDR"},
		{"postgres without dsn", func(c *Config) { c.DatabaseDSN = "" }, "DATABASE_DSN"},
		{"memory without dsn", func(c *Config) { c.StoreBackend = BackendMemory; c.DatabaseDSN = "" }, ""},
		{"bcrypt cost too low", func(c *Config) { c.BcryptCost = 3 }, "bcrypt cost"},
		{"password length too high", func(c *Config) { c.PasswordMinLength = 73 }, "password min length"},
		{"no listeners", func(c *Config) { c.HTTPAddr = ""; c.GRPCAddr = "" }, "at least one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	c := validConfig()
	c.SecretKey = ""
	c.BcryptCost = 0

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing secret")
	assert.Contains(t, err.Error(), "bcrypt cost")
}

func TestEffectiveRefreshStore(t *testing.T) {
	c := validConfig()
	c.StoreBackend = BackendMemory
	assert.Equal(t, BackendMemory, c.EffectiveRefreshStore())

	c.RefreshStore = BackendRedis
	assert.Equal(t, BackendRedis, c.EffectiveRefreshStore())
}

func TestLoad_FullEnvironment(t *testing.T) {
	env := envOf(map[string]string{
		"PORT":                   "8080",
		"GRPC_ADDRESS":           ":6000",
		"DATABASE_DSN":           "postgres://db",
		"STORE_BACKEND":          "postgres",
		"REFRESH_STORE":          "redis",
		"REDIS_ADDR":             "redis:6379",
		"REDIS_PREFIX":           "p",
		"REDIS_RETENTION":        "30d",
		"JWT_SECRET":             "s1",
		"JWT_REFRESH_SECRET":     "s2",
		"JWT_ACCESS_EXPIRATION":  "10m",
		"JWT_REFRESH_EXPIRATION": "1w",
		"BCRYPT_COST":            "10",
		"PASSWORD_MIN_LENGTH":    "12",
		"LOG_LEVEL":              "debug",
		"SHUTDOWN_TIMEOUT":       "3s",
		"CORS_ORIGINS":           "https://app.example.com, http://127.0.0.1:*",
	})

	cfg, err := Load(nil, env)
	require.NoError(t, err)

	want := &Config{
		HTTPAddr:           ":8080",
		GRPCAddr:           ":6000",
		DatabaseDSN:        "postgres://db",
		StoreBackend:       "postgres",
		RefreshStore:       "redis",
		RedisAddr:          "redis:6379",
		RedisPrefix:        "p",
		RedisRetention:     30 * 24 * time.Hour,
		SecretKey:          "s1",
		RefreshSecretKey:   "s2",
		AccessTokenTTL:     10 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		BcryptCost:         10,
		PasswordMinLength:  12,
		LogLevel:           "debug",
		ShutdownTimeout:    3 * time.Second,
		CORSAllowedOrigins: []string{"https://app.example.com", "http://127.0.0.1:*"},
	}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoad_BadEnvironmentValues(t *testing.T) {
	for name, env := range map[string]map[string]string{
		"duration": {"JWT_SECRET": "s", "JWT_REFRESH_EXPIRATION": "soon"},
		"integer":  {"JWT_SECRET": "s", "BCRYPT_COST": "twelve"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(nil, envOf(env))
			assert.Error(t, err)
		})
	}
}

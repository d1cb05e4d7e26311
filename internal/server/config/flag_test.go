package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected func() *Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", ":8080", "-g", ":9090", "-d", "db", "-m", "memory", "-x", "redis", "-e", "r:1",
				"-s", "secret", "-k", "rsecret", "-t", "2m", "-r", "14d", "-b", "10", "-n", "9", "-l", "debug",
			},
			expected: func() *Config {
				c := &Config{}
				c.LoadDefaults()
				c.HTTPAddr = ":8080"
				c.GRPCAddr = ":9090"
				c.DatabaseDSN = "db"
				c.StoreBackend = "memory"
				c.RefreshStore = "redis"
				c.RedisAddr = "r:1"
				c.SecretKey = "secret"
				c.RefreshSecretKey = "rsecret"
				c.AccessTokenTTL = 2 * time.Minute
				c.RefreshTokenTTL = 14 * 24 * time.Hour
				c.BcryptCost = 10
				c.PasswordMinLength = 9
				c.LogLevel = "debug"
				return c
			},
		},
		{
			name: "foreign flags are ignored",
			args: []string{"-config", "x.json", "-v", "-s", "only"},
			expected: func() *Config {
				c := &Config{}
				c.LoadDefaults()
				c.SecretKey = "only"
				return c
			},
		},
		{name: "bad duration", args: []string{"-t", "forever"}, wantErr: true},
		{name: "bad integer", args: []string{"-b", "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			config.LoadDefaults()

			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected(), config))
		})
	}
}

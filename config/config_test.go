package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 50, cfg.Query.MaxPageSize)
	assert.Equal(t, 1, cfg.Query.DefaultPageSize)
	assert.Equal(t, "ascending", cfg.Query.DefaultOrder)
	assert.Equal(t, "strict", cfg.Query.Policy)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpirationDuration())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRATION", "90m")
	t.Setenv("QUERY_MAX_PAGE_SIZE", "200")
	t.Setenv("QUERY_POLICY", "lenient")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,172.16.0.0/12")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 90*time.Minute, cfg.JWT.ExpirationDuration())
	assert.Equal(t, 200, cfg.Query.MaxPageSize)
	assert.Equal(t, "lenient", cfg.Query.Policy)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, cfg.Server.TrustedProxies)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", d.ConnectionString())
}

func TestJWTConfig_InvalidExpirationFallsBack(t *testing.T) {
	assert.Equal(t, 24*time.Hour, JWTConfig{Expiration: "soon"}.ExpirationDuration())
	assert.Equal(t, 24*time.Hour, JWTConfig{Expiration: "-1h"}.ExpirationDuration())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"page size", "QUERY_MAX_PAGE_SIZE", "0"},
		{"default above max", "QUERY_DEFAULT_PAGE_SIZE", "500"},
		{"order", "QUERY_DEFAULT_ORDER", "sideways"},
		{"log format", "LOG_FORMAT", "xml"},
		{"gin mode", "GIN_MODE", "production"},
		{"port", "PORT", "http"},
		{"policy", "QUERY_POLICY", "loose"},
		{"trusted proxy", "TRUSTED_PROXIES", "gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)

			_, err := load(viper.New())
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the environment variables Load refuses to default.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PASSWORD", "test-db-password")
	t.Setenv("JWT_SECRET", "test-jwt-secret")
	t.Setenv("ADMIN_PASSWORD", "test-admin-password")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "farmreg", cfg.Database.Name)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, 2, cfg.Database.PoolMin)
	assert.Equal(t, 10, cfg.Database.PoolMax)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "admin@farmreg.local", cfg.Auth.AdminEmail)
	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
	assert.Equal(t, "uploads", cfg.Uploads.Dir)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.Origins)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("DB_NAME", "registry_test")
	t.Setenv("TOKEN_TTL", "1h30m")
	t.Setenv("UPLOAD_DIR", "/var/lib/registry/uploads")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "registry_test", cfg.Database.Name)
	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "/var/lib/registry/uploads", cfg.Uploads.Dir)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.CORS.Origins)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr string
	}{
		{name: "missing db password", unset: "DB_PASSWORD", wantErr: "DB_PASSWORD"},
		{name: "missing jwt secret", unset: "JWT_SECRET", wantErr: "JWT_SECRET"},
		{name: "missing admin password", unset: "ADMIN_PASSWORD", wantErr: "ADMIN_PASSWORD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatePoolBounds(t *testing.T) {
	setRequiredEnv(t)

	t.Run("min above max", func(t *testing.T) {
		t.Setenv("DB_POOL_MIN", "20")
		t.Setenv("DB_POOL_MAX", "5")

		cfg, err := Load()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_POOL_MIN")
	})

	t.Run("zero max", func(t *testing.T) {
		t.Setenv("DB_POOL_MAX", "0")

		cfg, err := Load()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_POOL_MAX")
	})
}

func TestValidateTokenTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_TTL", "0s")

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_TTL")
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single origin", input: "http://localhost:3000", want: []string{"http://localhost:3000"}},
		{name: "multiple with spaces", input: "a.com, b.com ,c.com", want: []string{"a.com", "b.com", "c.com"}},
		{name: "empty string", input: "", want: []string{}},
		{name: "trailing comma", input: "a.com,", want: []string{"a.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOrigins(tt.input))
		})
	}
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefg")
	t.Setenv("STORE_SEED_FILE", "")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "$2a$10$abcdefg", cfg.AdminPasswordHash)
}

func TestLoadConfigDefaultPort(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("PAGE_SIZE", "")
	t.Setenv("CAPTCHA_ENABLED", "")
	t.Setenv("RENDER_CACHE_TTL", "")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 20, cfg.PageSize)
	assert.True(t, cfg.CaptchaEnabled)
	assert.Equal(t, 10*time.Minute, cfg.RenderCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PAGE_SIZE", "5")
	t.Setenv("CAPTCHA_ENABLED", "false")
	t.Setenv("RENDER_CACHE_TTL", "30s")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5, cfg.PageSize)
	assert.False(t, cfg.CaptchaEnabled)
	assert.Equal(t, 30*time.Second, cfg.RenderCacheTTL)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PAGE_SIZE", "many")
	t.Setenv("CAPTCHA_ENABLED", "maybe")
	t.Setenv("RENDER_CACHE_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 20, cfg.PageSize)
	assert.True(t, cfg.CaptchaEnabled)
	assert.Equal(t, 10*time.Minute, cfg.RenderCacheTTL)
}

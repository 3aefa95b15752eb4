package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables.
// Defaults are meant for local development.
type Config struct {
	Env      string // development, production
	Port     string
	GinMode  string
	LogLevel string

	// Database
	DBDriver    string // postgres or sqlite
	DatabaseURL string

	// Sessions
	SessionSecret string
	SessionName   string

	// Rendering
	TemplatesDir   string
	StaticDir      string
	PageSize       int
	RenderCacheLen int
	RenderCacheTTL time.Duration
	SiteURL        string

	CaptchaEnabled bool

	// SMTP (mail is disabled unless all are set)
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i <= 0 {
			log.Printf("invalid int for %s: %q, using default %d", key, v, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Env:      getenv("APP_ENV", "development"),
		Port:     getenv("PORT", "8080"),
		GinMode:  getenv("GIN_MODE", "release"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DBDriver:    getenv("DB_DRIVER", "postgres"),
		DatabaseURL: getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=quill port=5432 sslmode=disable"),

		SessionSecret: getenv("SESSION_SECRET", "secret_key_change_me"),
		SessionName:   getenv("SESSION_NAME", "quill_session"),

		TemplatesDir:   getenv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:      getenv("STATIC_DIR", "./web/static"),
		PageSize:       getint("PAGE_SIZE", 20),
		RenderCacheLen: getint("RENDER_CACHE_SIZE", 500),
		RenderCacheTTL: getdur("RENDER_CACHE_TTL", 10*time.Minute),
		SiteURL:        getenv("SITE_URL", "http://localhost:8080"),

		CaptchaEnabled: getbool("CAPTCHA_ENABLED", true),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: os.Getenv("SMTP_PORT"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),
	}
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

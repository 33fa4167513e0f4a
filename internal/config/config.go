package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port           string
	DBDriver       string // sqlite, mysql, postgres
	DBDSN          string
	JWTSecret      string
	JWTExpireHours int
	SessionSecret  string
	GinMode        string
	LogLevel       string
	CORSOrigins    []string // production allowlist; empty = localhost-only dev origins
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "5000"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite"),
		DBDSN:          getEnv("DB_DSN", "taskhive.db"),
		JWTSecret:      getEnv("JWT_SECRET", "taskhive-secret-change-me"),
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 168),
		SessionSecret:  getEnv("SESSION_SECRET", "taskhive-session-secret-change-me"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "")),
	}
}

// IsProduction reports whether error detail should be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

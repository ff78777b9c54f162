package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultModel             = "gemini-2.5-flash"
	DefaultSystemInstruction = "Harus dibalas dalam bahasa Indonesia"
)

type Config struct {
	// Server
	Port          string
	Env           string
	LogLevel      string
	StaticDir     string
	AllowedOrigin string
	MaxBodyBytes  int64

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	SystemInstruction    string
	GeminiConcurrentReqs int
	UpstreamTimeout      time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "3000"),
		Env:                  getEnvOrDefault("ENV", "development"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		StaticDir:            getEnvOrDefault("STATIC_DIR", "./static"),
		AllowedOrigin:        getEnvOrDefault("ALLOWED_ORIGIN", "*"),
		MaxBodyBytes:         int64(getEnvAsIntOrDefault("MAX_BODY_BYTES", 1<<20)),
		GeminiAPIKey:         mustGetEnv("GOOGLE_API_KEY", "GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", DefaultModel),
		SystemInstruction:    getEnvOrDefault("SYSTEM_INSTRUCTION", DefaultSystemInstruction),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		UpstreamTimeout:      time.Duration(getEnvAsIntOrDefault("UPSTREAM_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	if cfg.GeminiConcurrentReqs < 1 {
		cfg.GeminiConcurrentReqs = 1
	}

	return cfg
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// mustGetEnv returns the first non-empty value among keys and panics when none is set.
func mustGetEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	panic(fmt.Sprintf("required environment variable %s is not set", keys[0]))
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

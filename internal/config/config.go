package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	GeminiAPIKey  string
	GeminiModelID string

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Outbound reasoning budget: at most MaxMessagesPerWindow drained
	// work items per WindowTime, regardless of inbound burst size.
	MaxMessagesPerWindow int
	WindowTime           time.Duration

	// Per-item processing deadline so a stalled oracle or database call
	// cannot wedge the dispatch loop indefinitely.
	ItemTimeout time.Duration

	HistoryWindow     int
	SlotSearchDays    int
	MinSlotGapMinutes int
	DedupCacheTTL     time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),

		MaxMessagesPerWindow: getEnvAsInt("MAX_MESSAGES_PER_MINUTE", 15),
		WindowTime:           getEnvAsDuration("WINDOW_TIME", time.Minute),
		ItemTimeout:          getEnvAsDuration("ITEM_TIMEOUT", 60*time.Second),

		HistoryWindow:     getEnvAsInt("HISTORY_WINDOW", 10),
		SlotSearchDays:    getEnvAsInt("SLOT_SEARCH_DAYS", 30),
		MinSlotGapMinutes: getEnvAsInt("MIN_SLOT_GAP_MINUTES", 30),
		DedupCacheTTL:     getEnvAsDuration("DEDUP_CACHE_TTL", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

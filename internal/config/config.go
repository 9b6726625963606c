package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis ("" = 단일 프로세스 모드, 인메모리 저장소 사용)
	RedisURL string

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Webhook (매치 결과 수신용)
	WebhookSecret string

	// Admin API
	AdminAPIKey string

	// Verification rate limiter
	MaxMatchesPerDay      int
	CooldownMinutes       int
	VelocityWindowMinutes int
	MaxVelocity           int

	// Activity detector
	IdleThresholdMs         int
	ActivityCheckIntervalMs int
	MaxIdleWarnings         int

	// Rewards
	BasePointsPerMatch int

	// Agent
	ServerURL  string
	AgentToken string
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiration: parseDuration(getEnv("JWT_EXPIRATION", "24h")),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		AdminAPIKey:   getEnv("ADMIN_API_KEY", ""),

		MaxMatchesPerDay:      parseInt(getEnv("MAX_MATCHES_PER_DAY", "20")),
		CooldownMinutes:       parseInt(getEnv("COOLDOWN_MINUTES", "5")),
		VelocityWindowMinutes: parseInt(getEnv("VELOCITY_WINDOW_MINUTES", "60")),
		MaxVelocity:           parseInt(getEnv("MAX_VELOCITY", "10")),

		IdleThresholdMs:         parseInt(getEnv("IDLE_THRESHOLD_MS", "60000")),
		ActivityCheckIntervalMs: parseInt(getEnv("ACTIVITY_CHECK_INTERVAL_MS", "5000")),
		MaxIdleWarnings:         parseInt(getEnv("MAX_IDLE_WARNINGS", "3")),

		BasePointsPerMatch: parseInt(getEnv("BASE_POINTS_PER_MATCH", "100")),

		ServerURL:  getEnv("SERVER_URL", "http://localhost:8080"),
		AgentToken: getEnv("AGENT_TOKEN", ""),

		CORSAllowedOrigins: strings.Split(
			getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

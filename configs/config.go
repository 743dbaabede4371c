package config

import (
	"os"
	"strconv"
	"strings"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	PostgresURI  string
	RedisURI     string
	ListenAddr   string
	R2           R2
	SecretKey    string
	CookieName   string
	APIKey       string
	PlatformMode string // "live" or "mock"
	LogFormat    string
	Scheduler    SchedulerConfig
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:  getEnv("POSTGRES_URI", ""),
		RedisURI:     getEnv("REDIS_URI", "localhost:6379"),
		ListenAddr:   getEnv("LISTEN_ADDR", ":3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:    getEnv("SECRET_KEY", ""),
		CookieName:   getEnv("COOKIE_NAME", "session"),
		APIKey:       getEnv("API_KEY", ""),
		PlatformMode: getEnv("PLATFORM_MODE", "live"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		Scheduler:    loadSchedulerFromEnv(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvList reads a comma separated list, e.g. "tiktok,instagram".
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvIntList(key string, defaultValue []int) []int {
	parts := getEnvList(key, nil)
	if len(parts) == 0 {
		return defaultValue
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

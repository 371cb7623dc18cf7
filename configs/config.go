package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Instagram struct {
	GraphURL        string
	APIVersion      string
	RequestsPerSec  float64
	RefreshInterval string
	RefreshWindow   time.Duration
}

type Config struct {
	StoreDriver     string
	PostgresURI     string
	MongoURI        string
	DatabaseName    string
	PublishInterval string
	ShutdownTimeout time.Duration
	ListenAddr      string
	SecretKey       string
	SentryDSN       string
	Environment     string
	Instagram       Instagram
	R2              R2
}

func LoadConfig() *Config {
	return &Config{
		StoreDriver:     getEnv("STORE_DRIVER", "postgres"),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		DatabaseName:    getEnv("DATABASE_NAME", "igscheduler"),
		PublishInterval: getEnv("PUBLISH_INTERVAL", "@every 1m"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		ListenAddr:      getEnv("LISTEN_ADDR", ":3000"),
		SecretKey:       getEnv("SECRET_KEY", ""),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		Instagram: Instagram{
			GraphURL:        getEnv("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com"),
			APIVersion:      getEnv("INSTAGRAM_API_VERSION", "v22.0"),
			RequestsPerSec:  getFloat("INSTAGRAM_REQUESTS_PER_SEC", 5),
			RefreshInterval: getEnv("TOKEN_REFRESH_INTERVAL", "@every 10m"),
			RefreshWindow:   getDuration("TOKEN_REFRESH_WINDOW", 7*24*time.Hour),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

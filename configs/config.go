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

type Config struct {
	PostgresURI      string
	RedisURI         string
	FrontendURL      string
	SecretKey        string
	CookieName       string
	CronSecret       string
	LinkedinClientID string
	LinkedinSecret   string
	LinkedinRedirect string
	TwitterBaseURL   string
	LinkedinBaseURL  string
	HTTPTimeout      time.Duration
	R2               R2
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:      getEnv("POSTGRES_URI", ""),
		RedisURI:         getEnv("REDIS_URI", ""),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:        getEnv("SECRET_KEY", ""),
		CookieName:       getEnv("COOKIE_NAME", "postdeck_session"),
		CronSecret:       getEnv("CRON_SECRET", ""),
		LinkedinClientID: getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedinSecret:   getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedinRedirect: getEnv("LINKEDIN_REDIRECT_URI", ""),
		TwitterBaseURL:   getEnv("TWITTER_BASE_URL", "https://api.twitter.com"),
		LinkedinBaseURL:  getEnv("LINKEDIN_BASE_URL", "https://api.linkedin.com"),
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
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

func getEnvInt(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	Env                   string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InsightCacheTTLHours  int
	OpenAIAPIKey          string
	OpenAIModel           string
	AuthSecret            string
	AccessTokenTTLMinutes int
	SeedAdminPassword     string
	SeedAnalystPassword   string
	MaxUploadMB           int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		Env:                   strings.ToLower(getEnv("APP_ENV", EnvProduction)),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		InsightCacheTTLHours:  positiveInt("INSIGHT_CACHE_TTL_HOURS", 24),
		OpenAIAPIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:           strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		SeedAdminPassword:     os.Getenv("SEED_ADMIN_PASSWORD"),
		SeedAnalystPassword:   os.Getenv("SEED_ANALYST_PASSWORD"),
		MaxUploadMB:           positiveInt("MAX_UPLOAD_MB", 20),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) Development() bool {
	return c.Env == EnvDevelopment
}

func (c Config) InsightCacheTTL() time.Duration {
	return time.Duration(c.InsightCacheTTLHours) * time.Hour
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	val, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || val < 1 {
		return fallback
	}
	return val
}

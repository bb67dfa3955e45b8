package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/infra/setup"
	"snsu-notification/internal/service"
)

// Config holds everything read from the environment at startup.
type Config struct {
	AppEnv     string
	LogLevel   string
	ServerPort string

	DB setup.DBConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	JWTSecret      string
	JWTExpiryHours int

	CORSOrigins []string
	MaxFileSize int64

	AdminsObserveDirectMessages bool
	RateLimitMax                int
	RateLimitWindow             time.Duration
	PresenceSweepSchedule       string
	DefaultAdminPassword        string
}

// LoadConfig reads .env (when present) and then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:     orDefault(os.Getenv("APP_ENV"), "development"),
		LogLevel:   orDefault(os.Getenv("LOG_LEVEL"), "info"),
		ServerPort: orDefault(os.Getenv("SERVER_PORT"), "5000"),
		DB: setup.DBConfig{
			Type:     strings.ToLower(orDefault(os.Getenv("DB_TYPE"), setup.DBTypeSQLite)),
			Storage:  os.Getenv("DB_STORAGE"),
			URL:      os.Getenv("DATABASE_URL"),
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
		},
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:             orDefault(os.Getenv("REDIS_KEY_PREFIX"), "snsu:"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		CORSOrigins:           splitList(orDefault(os.Getenv("CORS_ORIGIN"), "http://localhost:8100")),
		RateLimitWindow:       time.Second,
		PresenceSweepSchedule: orDefault(os.Getenv("PRESENCE_SWEEP_SCHEDULE"), "@every 5m"),
		DefaultAdminPassword:  os.Getenv("DEFAULT_ADMIN_PASSWORD"),
	}

	var err error
	if cfg.DB.Logging, err = envBool("DB_LOGGING", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.JWTExpiryHours, err = envInt("JWT_EXPIRY_HOURS", service.DefaultTokenExpiryHours); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax, err = envInt("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	maxFile, err := envInt("MAX_FILE_SIZE", int(service.DefaultMaxFileSize))
	if err != nil {
		return nil, err
	}
	cfg.MaxFileSize = int64(maxFile)
	if cfg.AdminsObserveDirectMessages, err = envBool("ADMINS_OBSERVE_DIRECT_MESSAGES", true); err != nil {
		return nil, err
	}

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("environment variable %s must be a boolean: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

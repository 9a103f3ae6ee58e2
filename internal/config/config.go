package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type DynamoDBConfig struct {
	Endpoint   string
	Region     string
	TableName  string
	EmailIndex string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type JWTConfig struct {
	// AccessSecret and RefreshSecret sign access and refresh tokens
	// respectively. They must never be the same key: a refresh token
	// replayed against the access verifier has to fail the signature
	// check, not just the type check.
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	// RememberExpiry replaces RefreshExpiry when the client sets the
	// remember flag at login.
	RememberExpiry time.Duration
}

type AuthConfig struct {
	// HashWorkers bounds concurrent bcrypt computations.
	HashWorkers int
	// RefreshStore selects the credential store backend: "redis" or "dynamodb".
	RefreshStore  string
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:   getEnv("DYNAMODB_ENDPOINT", ""),
			Region:     getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName:  getEnv("DYNAMODB_TABLE_NAME", "CoinkeptTable"),
			EmailIndex: getEnv("DYNAMODB_EMAIL_INDEX", "EmailIndex"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:   getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret:  getEnv("JWT_REFRESH_SECRET", ""),
			AccessExpiry:   getEnvAsDuration("JWT_ACCESS_EXPIRY", time.Hour),
			RefreshExpiry:  getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
			RememberExpiry: getEnvAsDuration("JWT_REMEMBER_EXPIRY", 30*24*time.Hour),
		},
		Auth: AuthConfig{
			HashWorkers:   getEnvAsInt("AUTH_HASH_WORKERS", 4),
			RefreshStore:  getEnv("REFRESH_TOKEN_STORE", "redis"),
			SweepInterval: getEnvAsDuration("REFRESH_SWEEP_INTERVAL", time.Hour),
		},
	}

	if cfg.JWT.AccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET environment variable is required")
	}

	if cfg.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET environment variable is required")
	}

	if len(cfg.JWT.AccessSecret) < 32 || len(cfg.JWT.RefreshSecret) < 32 {
		return nil, fmt.Errorf("JWT secrets must be at least 32 bytes (256 bits)")
	}

	if cfg.JWT.AccessSecret == cfg.JWT.RefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be distinct")
	}

	if cfg.Auth.RefreshStore != "redis" && cfg.Auth.RefreshStore != "dynamodb" {
		return nil, fmt.Errorf("REFRESH_TOKEN_STORE must be redis or dynamodb, got %q", cfg.Auth.RefreshStore)
	}

	if cfg.Auth.HashWorkers < 1 {
		return nil, fmt.Errorf("AUTH_HASH_WORKERS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

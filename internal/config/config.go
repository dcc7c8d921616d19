package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Vault    VaultConfig
	Token    TokenConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type VaultConfig struct {
	// MasterKey is the base64-encoded 32-byte key that encrypts every
	// per-service signing secret at rest.
	MasterKey string
}

type TokenConfig struct {
	TTL    time.Duration
	Issuer string
}

type AuthConfig struct {
	MaxFailedLogins int
	LockDuration    time.Duration
	MagicLinkTTL    time.Duration
	// MagicLinkBaseURL is the hub page that redeems a code, e.g.
	// https://hub.example.com/login/magic.
	MagicLinkBaseURL string
}

type EmailConfig struct {
	Enabled   bool
	APIKey    string
	FromEmail string
	FromName  string
}

func Load() (*Config, error) {
	// .env is optional in production.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "idhub"),
			Password: getEnv("DB_PASSWORD", "idhub"),
			DBName:   getEnv("DB_NAME", "idhubdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Vault: VaultConfig{
			MasterKey: getEnv("VAULT_MASTER_KEY", ""),
		},
		Token: TokenConfig{
			TTL:    getDurationEnv("TOKEN_TTL", 15*time.Minute),
			Issuer: getEnv("TOKEN_ISSUER", "identity-hub"),
		},
		Auth: AuthConfig{
			MaxFailedLogins:  getIntEnv("AUTH_MAX_FAILED_LOGINS", 5),
			LockDuration:     getDurationEnv("AUTH_LOCK_DURATION", 15*time.Minute),
			MagicLinkTTL:     getDurationEnv("AUTH_MAGIC_LINK_TTL", 10*time.Minute),
			MagicLinkBaseURL: getEnv("AUTH_MAGIC_LINK_BASE_URL", "http://localhost:8080/login/magic"),
		},
		Email: EmailConfig{
			Enabled:   getBoolEnv("EMAIL_ENABLED", false),
			APIKey:    getEnv("EMAIL_RESEND_API_KEY", ""),
			FromEmail: getEnv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
			FromName:  getEnv("EMAIL_FROM_NAME", "Identity Hub"),
		},
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// DecodedMasterKey decodes and validates the vault master key.
func (c *VaultConfig) DecodedMasterKey() ([]byte, error) {
	if c.MasterKey == "" {
		return nil, fmt.Errorf("VAULT_MASTER_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(c.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("VAULT_MASTER_KEY is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("VAULT_MASTER_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

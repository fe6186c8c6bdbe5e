package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	minSecretKeyLength = 32
)

var insecureSecretKeys = map[string]struct{}{
	"change_me_in_production": {},
	"changeme":                {},
	"secret":                  {},
	"replace_with_at_least_32_random_characters": {},
}

type DatabaseConfig struct {
	Driver          string
	Path            string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type AuthConfig struct {
	SecretKey      string
	AccessTokenTTL time.Duration
	CodeTTL        time.Duration
	EchoCode       bool
}

type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type MailConfig struct {
	AWSRegion string
	FromEmail string
}

type Config struct {
	Env             string
	Port            string
	Location        *time.Location
	LogLevel        string
	DefaultLanguage string
	AllowOrigins    string
	Database        DatabaseConfig
	Auth            AuthConfig
	AI              AIConfig
	Mail            MailConfig
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	secretKey, err := ResolveSecretKey()
	if err != nil {
		return nil, err
	}

	location, err := loadLocation(getEnv("TZ", "UTC"))
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", DriverSQLite)))
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return &Config{
		Env:             getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		Location:        location,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		AllowOrigins:    getEnv("CORS_ALLOW_ORIGINS", "*"),
		Database: DatabaseConfig{
			Driver:          driver,
			Path:            getEnv("DB_PATH", filepath.Join("data", "lifelog.db")),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "lifelog"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Auth: AuthConfig{
			SecretKey:      secretKey,
			AccessTokenTTL: getEnvAsDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
			CodeTTL:        getEnvAsDuration("OTP_TTL", 10*time.Minute),
			EchoCode:       getEnvAsBool("OTP_ECHO", false),
		},
		AI: AIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o"),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
		},
		Mail: MailConfig{
			AWSRegion: getEnv("AWS_REGION", ""),
			FromEmail: getEnv("SES_FROM_EMAIL", ""),
		},
	}, nil
}

// ResolveSecretKey reads SECRET_KEY and rejects empty, placeholder and short values.
func ResolveSecretKey() (string, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return "", errors.New("SECRET_KEY is required")
	}
	if _, insecure := insecureSecretKeys[strings.ToLower(secret)]; insecure {
		return "", errors.New("SECRET_KEY uses an insecure placeholder value")
	}
	if len(secret) < minSecretKeyLength {
		return "", fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return secret, nil
}

// Fields returns the non-secret configuration as zap fields.
func (c *Config) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("environment", c.Env),
		zap.String("port", c.Port),
		zap.String("tz", c.Location.String()),
		zap.String("db_driver", c.Database.Driver),
		zap.Bool("ai_enabled", c.AI.APIKey != ""),
		zap.Bool("ses_enabled", c.Mail.FromEmail != ""),
	}
	if c.Database.Driver == DriverSQLite {
		return append(fields, zap.String("db_path", c.Database.Path))
	}
	return append(fields,
		zap.String("db_host", c.Database.Host),
		zap.String("db_name", c.Database.Name),
	)
}

func loadLocation(name string) (*time.Location, error) {
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", name, err)
	}
	return location, nil
}

func getEnv(key string, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil && value > 0 {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

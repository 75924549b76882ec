package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Token strategies accepted by TOKEN_STRATEGY.
const (
	TokenStrategyPaseto = "paseto"
	TokenStrategyJWT    = "jwt"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string
}

type DatabaseConfig struct {
	// URL takes precedence over the discrete fields when set
	URL            string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	TokenStrategy string
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey     []byte
	JWTSecret     []byte
	TokenDuration time.Duration
	OTPTTL        time.Duration
}

type EmailConfig struct {
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPassword  string
	From          string
	SendTimeout   time.Duration
	RetryInterval time.Duration
	MaxAttempts   int
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:8081"}),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "notes"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenStrategy: strings.ToLower(getEnv("TOKEN_STRATEGY", TokenStrategyPaseto)),
			PasetoKey:     []byte(getEnv("PASETO_KEY", "")),
			JWTSecret:     []byte(getEnv("JWT_SECRET", "")),
			TokenDuration: getDurationEnv("TOKEN_DURATION", time.Hour),
			OTPTTL:        getDurationEnv("OTP_TTL", 15*time.Minute),
		},
		Email: EmailConfig{
			SMTPHost:      getEnv("SMTP_HOST", ""),
			SMTPPort:      getEnv("SMTP_PORT", "587"),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPassword:  getEnv("SMTP_PASS", ""),
			From:          getEnv("SMTP_FROM", getEnv("SMTP_USER", "")),
			SendTimeout:   getDurationEnv("SMTP_TIMEOUT", 10*time.Second),
			RetryInterval: getDurationEnv("MAIL_RETRY_INTERVAL", 30*time.Second),
			MaxAttempts:   getIntEnv("MAIL_MAX_ATTEMPTS", 5),
		},
	}

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Email.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the key material matches the selected token strategy.
func (c *AuthConfig) Validate() error {
	switch c.TokenStrategy {
	case TokenStrategyPaseto:
		if len(c.PasetoKey) != 32 {
			return fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.PasetoKey))
		}
	case TokenStrategyJWT:
		if len(c.JWTSecret) == 0 {
			return fmt.Errorf("JWT_SECRET is required when TOKEN_STRATEGY is %q", TokenStrategyJWT)
		}
	default:
		return fmt.Errorf("unsupported TOKEN_STRATEGY %q", c.TokenStrategy)
	}

	if c.TokenDuration <= 0 {
		return fmt.Errorf("TOKEN_DURATION must be positive")
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}

	return nil
}

// Validate checks the mail delivery timings. The retry worker ticks every
// RetryInterval, so it must be positive.
func (c *EmailConfig) Validate() error {
	if c.SendTimeout <= 0 {
		return fmt.Errorf("SMTP_TIMEOUT must be positive")
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("MAIL_RETRY_INTERVAL must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAIL_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Address returns the SMTP server address (host:port)
func (c *EmailConfig) Address() string {
	return net.JoinHostPort(c.SMTPHost, c.SMTPPort)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

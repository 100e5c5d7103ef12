package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DB     DBConfig
	Server ServerConfig
	JWT    JWTConfig
	Email  EmailConfig
	MinIO  MinIOConfig
	Audit  AuditConfig
}

type DBConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

type ServerConfig struct {
	Port        string
	FrontendURL string
	BodyLimit   int
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// EmailConfig is built once at start-up and handed to notify.NewMailer.
type EmailConfig struct {
	Service     string
	Host        string
	Port        int
	Username    string
	Password    string
	DefaultFrom string
	Timeout     time.Duration
}

type MinIOConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type AuditConfig struct {
	QueueSize      int
	ExportInterval time.Duration
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "membership"),
			Password:   getEnv("DB_PASSWORD", "membership_secret"),
			Name:       getEnv("DB_NAME", "membership"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "membership.db"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
			BodyLimit:   getEnvAsInt("SERVER_BODY_LIMIT", 1024*1024),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Email: EmailConfig{
			Service:     strings.ToLower(getEnv("EMAIL_SERVICE", "")),
			Host:        getEnv("EMAIL_SMTP_HOST", ""),
			Port:        getEnvAsInt("EMAIL_SMTP_PORT", 587),
			Username:    getEnv("EMAIL_SMTP_USERNAME", ""),
			Password:    getEnv("EMAIL_SMTP_PASSWORD", ""),
			DefaultFrom: getEnv("EMAIL_DEFAULT_FROM", "no-reply@membership.local"),
			Timeout:     getEnvAsDuration("EMAIL_TIMEOUT", 15*time.Second),
		},
		MinIO: MinIOConfig{
			Enabled:   getEnvAsBool("MINIO_ENABLED", false),
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "membership"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "membership_secret"),
			Bucket:    getEnv("MINIO_BUCKET", "membership-audit"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Audit: AuditConfig{
			QueueSize:      getEnvAsInt("AUDIT_QUEUE_SIZE", 1000),
			ExportInterval: getEnvAsDuration("AUDIT_EXPORT_INTERVAL", time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

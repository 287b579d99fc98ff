package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Security     SecurityConfig
	Verification VerificationConfig
	Mail         MailConfig
	Notifier     NotifierConfig
	Jobs         JobsConfig
	HTTP         HTTPConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        string
	Env         string
	AppName     string
	FrontendURL string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// SecurityConfig holds encryption keys and the registration session cookie settings
type SecurityConfig struct {
	SessionEncryptionKey string
	SessionCookieName    string
	SessionCookieSecure  bool
	RegistrationTTL      time.Duration
}

// VerificationConfig holds the one-time code policy
type VerificationConfig struct {
	CodeLength           int
	CodeTTL              time.Duration
	MaxAttempts          int
	MaxResends           int
	ForgotPasswordLimit  int
	ForgotPasswordWindow time.Duration
}

// MailConfig selects and configures the outbound mail transport
type MailConfig struct {
	Driver       string // smtp, resend or log
	From         string
	FromName     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPTLS      bool
	ResendAPIKey string
}

// NotifierConfig sizes the asynchronous notification dispatcher
type NotifierConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

// JobsConfig holds background job settings
type JobsConfig struct {
	PendingCleanupInterval time.Duration
	PendingCleanupGrace    time.Duration
}

// HTTPConfig holds the per-IP request throttle for public auth routes.
// Forwarded client addresses are honoured only from TrustedProxies.
type HTTPConfig struct {
	AuthRatePerSecond float64
	AuthBurst         int
	AllowedOrigins    []string
	TrustedProxies    []string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Env:         getEnv("SERVER_ENV", "development"),
			AppName:     getEnv("APP_NAME", "GiveOra"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "giveora"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Security: SecurityConfig{
			SessionEncryptionKey: getEnv("SESSION_ENCRYPTION_KEY", "0000000000000000000000000000000000000000000000000000000000000000"), // 32-bytes hex string
			SessionCookieName:    getEnv("REGISTRATION_COOKIE_NAME", "giveora_registration"),
			SessionCookieSecure:  getEnvAsBool("REGISTRATION_COOKIE_SECURE", false),
			RegistrationTTL:      getEnvAsDuration("REGISTRATION_SESSION_TTL", 2*time.Hour),
		},
		Verification: VerificationConfig{
			CodeLength:           getEnvAsInt("VERIFICATION_CODE_LENGTH", 6),
			CodeTTL:              getEnvAsDuration("VERIFICATION_CODE_TTL", 15*time.Minute),
			MaxAttempts:          getEnvAsInt("VERIFICATION_MAX_ATTEMPTS", 5),
			MaxResends:           getEnvAsInt("VERIFICATION_MAX_RESENDS", 3),
			ForgotPasswordLimit:  getEnvAsInt("FORGOT_PASSWORD_LIMIT", 5),
			ForgotPasswordWindow: getEnvAsDuration("FORGOT_PASSWORD_WINDOW", time.Hour),
		},
		Mail: MailConfig{
			Driver:       strings.ToLower(getEnv("MAIL_DRIVER", "log")),
			From:         getEnv("MAIL_FROM_ADDRESS", "no-reply@giveora.local"),
			FromName:     getEnv("MAIL_FROM_NAME", "Giveora"),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPTLS:      getEnvAsBool("SMTP_TLS", true),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		Notifier: NotifierConfig{
			Workers:     getEnvAsInt("NOTIFY_WORKERS", 4),
			QueueSize:   getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			MaxAttempts: getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
			RetryDelay:  getEnvAsDuration("NOTIFY_RETRY_DELAY", 2*time.Second),
		},
		Jobs: JobsConfig{
			PendingCleanupInterval: getEnvAsDuration("PENDING_CLEANUP_INTERVAL", 10*time.Minute),
			PendingCleanupGrace:    getEnvAsDuration("PENDING_CLEANUP_GRACE", 24*time.Hour),
		},
		HTTP: HTTPConfig{
			AuthRatePerSecond: getEnvAsFloat("AUTH_RATE_PER_SECOND", 2),
			AuthBurst:         getEnvAsInt("AUTH_RATE_BURST", 10),
			AllowedOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			TrustedProxies:    getEnvAsList("TRUSTED_PROXIES", nil),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvAsList(key string, defaultValue []string) []string {
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
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort         string
	AppMode         string
	LogLevel        string
	ShutdownTimeout time.Duration

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	GoogleClientID     string
	GoogleClientSecret string
	TokenEncryptionKey string

	EventsEndpoint    string
	EventsTimeout     time.Duration
	NotificationTopic string
	SubscriptionTTL   time.Duration
	EventTypes        []string
	WebhookToken      string

	CompletionProvider   string
	CompletionAPIKey     string
	CompletionBaseURL    string
	CompletionModel      string
	CompletionMaxTokens  int
	CompletionTimeout    time.Duration
	CompletionMaxAttempt int
	CompletionBaseDelay  time.Duration

	DraftRateLimit     int
	DraftRateWindow    time.Duration
	DraftRecordTimeout time.Duration

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	MetricsEnabled bool
}

var defaultEventTypes = []string{
	"google.workspace.meet.conference.v2.ended",
	"google.workspace.meet.transcript.v2.fileGenerated",
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:         getEnv("APP_PORT", "8080"),
		AppMode:         getEnv("APP_MODE", "debug"),
		LogLevel:        getEnv("LOG_LEVEL", ""),
		ShutdownTimeout: getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "recap_mail"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		TokenEncryptionKey: getEnv("TOKEN_ENCRYPTION_KEY", ""),

		EventsEndpoint:    getEnv("EVENTS_ENDPOINT", ""),
		EventsTimeout:     getEnvAsDuration("EVENTS_TIMEOUT", 15*time.Second),
		NotificationTopic: getEnv("EVENTS_PUBSUB_TOPIC", ""),
		SubscriptionTTL:   getEnvAsDuration("EVENTS_SUBSCRIPTION_TTL", 7*24*time.Hour),
		EventTypes:        getEnvAsList("EVENTS_TYPES", defaultEventTypes),
		WebhookToken:      getEnv("EVENTS_WEBHOOK_TOKEN", ""),

		CompletionProvider:   getEnv("COMPLETION_PROVIDER", "anthropic"),
		CompletionAPIKey:     getEnv("COMPLETION_API_KEY", ""),
		CompletionBaseURL:    getEnv("COMPLETION_BASE_URL", ""),
		CompletionModel:      getEnv("COMPLETION_MODEL", "claude-sonnet-4-20250514"),
		CompletionMaxTokens:  getEnvAsInt("COMPLETION_MAX_TOKENS", 1024),
		CompletionTimeout:    getEnvAsDuration("COMPLETION_TIMEOUT", 50*time.Second),
		CompletionMaxAttempt: getEnvAsInt("COMPLETION_MAX_ATTEMPTS", 3),
		CompletionBaseDelay:  getEnvAsDuration("COMPLETION_BASE_DELAY", time.Second),

		DraftRateLimit:     getEnvAsInt("DRAFT_RATE_LIMIT", 20),
		DraftRateWindow:    getEnvAsDuration("DRAFT_RATE_WINDOW", time.Hour),
		DraftRecordTimeout: getEnvAsDuration("DRAFT_RECORD_TIMEOUT", 10*time.Second),

		S3Region:    getEnv("S3_REGION", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}
}

// Validate rejects settings the draft and subscription flows cannot run with.
func (c *Config) Validate() error {
	if c.CompletionTimeout <= 0 {
		return errors.New("COMPLETION_TIMEOUT must be positive")
	}
	if c.CompletionMaxAttempt < 1 {
		return errors.New("COMPLETION_MAX_ATTEMPTS must be at least 1")
	}
	if c.CompletionMaxTokens < 1 {
		return errors.New("COMPLETION_MAX_TOKENS must be at least 1")
	}
	if len(c.EventTypes) == 0 {
		return errors.New("EVENTS_TYPES must list at least one event type")
	}
	switch c.CompletionProvider {
	case "anthropic", "gemini":
	default:
		return errors.New("COMPLETION_PROVIDER must be anthropic or gemini")
	}
	return nil
}

// S3Enabled reports whether the draft archive bucket is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Region != "" && c.S3Bucket != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

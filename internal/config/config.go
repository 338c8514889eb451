package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port        string
	Debug       bool
	CORSOrigins []string

	// Authentication
	APITokens     map[string]string // bearer token -> user id
	DefaultUserID string

	// Storage configuration
	StoreBackend string // "memory" or "sqlite"
	SQLitePath   string
	DataDir      string
	SeedFile     string

	// Azure Storage configuration (state backups)
	StorageAccount   string
	StorageContainer string

	// Sentiment analysis
	HuggingFaceToken    string
	HuggingFaceModelURL string
	DemoMode            bool
	SentimentTimeout    time.Duration

	// Schedule configuration
	ReportSchedule string // "daily" or "weekly"
	ReportUsers    []string
	TimeZone       string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Alerting
	AlertNegativeRatio float64
	AlertMinMentions   int

	// Mention collection
	Keywords           []string
	CollectionLookback time.Duration
	RedditClientID     string
	RedditSecret       string
	TwitterBearerToken string
	YouTubeAPIKey      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Debug:       getBoolEnv("DEBUG", false),
		CORSOrigins: getSliceEnv("CORS_ORIGINS", []string{"http://localhost:5173"}),

		APITokens:     getMapEnv("API_TOKENS"),
		DefaultUserID: getEnv("DEFAULT_USER_ID", "default"),

		StoreBackend: getEnv("STORE_BACKEND", BackendMemory),
		SQLitePath:   getEnv("SQLITE_PATH", "data/sentiment.db"),
		DataDir:      getEnv("DATA_DIR", "data"),
		SeedFile:     getEnv("SEED_FILE", "data/seed.json"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "sentiment"),

		HuggingFaceToken:    getEnv("HUGGINGFACE_API_TOKEN", ""),
		HuggingFaceModelURL: getEnv("HUGGINGFACE_MODEL_URL", "https://api-inference.huggingface.co/models/siebert/sentiment-roberta-large-english"),
		DemoMode:            getBoolEnv("DEMO_MODE", false),
		SentimentTimeout:    getDurationEnv("SENTIMENT_TIMEOUT", 10*time.Second),

		ReportSchedule: getEnv("REPORT_SCHEDULE", "weekly"),
		ReportUsers:    getSliceEnv("REPORT_USERS", []string{"default"}),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		AlertNegativeRatio: getFloatEnv("ALERT_NEGATIVE_RATIO", 0.3),
		AlertMinMentions:   getIntEnv("ALERT_MIN_MENTIONS", 5),

		Keywords:           getSliceEnv("KEYWORDS", nil),
		CollectionLookback: getDurationEnv("COLLECTION_LOOKBACK", 24*time.Hour),
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditSecret:       getEnv("REDDIT_CLIENT_SECRET", ""),
		TwitterBearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		YouTubeAPIKey:      getEnv("YOUTUBE_API_KEY", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.StoreBackend != BackendMemory && c.StoreBackend != BackendSQLite {
		return fmt.Errorf("STORE_BACKEND must be '%s' or '%s'", BackendMemory, BackendSQLite)
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if c.AlertNegativeRatio < 0 || c.AlertNegativeRatio > 1 {
		return fmt.Errorf("ALERT_NEGATIVE_RATIO must be between 0 and 1")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.TimeZone, err)
	}

	return nil
}

// Location returns the configured time zone used for day boundaries
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CollectionEnabled reports whether keyword mention collection should run
func (c *Config) CollectionEnabled() bool {
	return len(c.Keywords) > 0
}

// NotificationsEnabled reports whether any notification channel is configured
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var parts []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		return parts
	}
	return defaultValue
}

// getMapEnv parses "key=value,key2=value2"
func getMapEnv(key string) map[string]string {
	result := make(map[string]string)
	for _, pair := range getSliceEnv(key, nil) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" || v == "" {
			continue
		}
		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return result
}

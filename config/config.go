package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RabbitMQConfig holds the connection settings for the event publisher.
type RabbitMQConfig struct {
	Host                        string
	Port                        string
	User                        string
	Password                    string
	Exchange                    string
	InsightsGeneratedRoutingKey string
}

// GetAMQPURL builds the AMQP connection URL from the individual parts.
func (c RabbitMQConfig) GetAMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

// Config holds all configuration for the returns insight service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Host           string
	Port           string
	TrustedProxies []string

	// Shopify app credentials
	ShopifyAPIKey     string
	ShopifyAPISecret  string
	ShopifyScopes     string
	ShopifyAPIVersion string

	// Public URLs
	AppURL      string
	FrontendURL string

	// Dashboard session tokens
	JWTSecret   string
	TokenExpiry time.Duration

	// Engine configuration
	EngineInterval time.Duration
	SyncWindowDays int

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Event publishing
	RabbitMQ RabbitMQConfig

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "returns_insight"),

		// Server defaults
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8080"),
		TrustedProxies: getStringSliceEnv("TRUSTED_PROXIES", ""),

		// Shopify app
		ShopifyAPIKey:     getEnv("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:  getEnv("SHOPIFY_API_SECRET", ""),
		ShopifyScopes:     getEnv("SHOPIFY_SCOPES", "read_orders,read_products,read_customers"),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-01"),

		AppURL:      getEnv("APP_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		TokenExpiry: getDurationEnv("TOKEN_EXPIRY", 24*time.Hour),

		// Engine defaults: one full pass over all merchants per hour
		EngineInterval: getDurationEnv("ENGINE_INTERVAL", time.Hour),
		SyncWindowDays: getIntEnv("SYNC_WINDOW_DAYS", 90),

		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		RabbitMQ: RabbitMQConfig{
			Host:                        getEnv("RABBITMQ_HOST", "localhost"),
			Port:                        getEnv("RABBITMQ_PORT", "5672"),
			User:                        getEnv("RABBITMQ_USER", "guest"),
			Password:                    getEnv("RABBITMQ_PASSWORD", "guest"),
			Exchange:                    getEnv("RABBITMQ_EXCHANGE", "insight-events"),
			InsightsGeneratedRoutingKey: getEnv("RABBITMQ_INSIGHTS_ROUTING_KEY", "insights.generated"),
		},

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getStringSliceEnv gets a comma-separated environment variable as a slice
func getStringSliceEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

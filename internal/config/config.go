package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Billing service configuration
	BillingServiceURL string

	// Store key pair, read once from configuration. The public key is carried
	// for signature verification, which is disabled; the skip flag records
	// that explicitly.
	StorePublicKey           string
	SkipPurchaseVerification bool

	// Rate limiting configuration
	RateLimitPerMinute int

	ServiceName string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                     getEnv("PORT", "8080"),
		Mode:                     getEnv("GIN_MODE", "debug"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		RedisURL:                 getEnv("REDIS_URL", "redis://localhost:6379/0"),
		BillingServiceURL:        getEnv("BILLING_SERVICE_URL", "http://localhost:9090"),
		StorePublicKey:           getEnv("STORE_PUBLIC_KEY", ""),
		SkipPurchaseVerification: getEnvBool("SKIP_PURCHASE_VERIFICATION", true),
		RateLimitPerMinute:       getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ServiceName:              getEnv("SERVICE_NAME", "Billing Bridge"),
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

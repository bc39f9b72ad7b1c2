package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	// Remote marketplace API (product collection service)
	MarketplaceBaseURL string
	RequestTimeout     time.Duration
	// Listing
	PageSize int
	// Notification reconciler
	PollInterval time.Duration
	// When true, a deleted notification may reappear on a later pass if its
	// source product still exists (the legacy behavior). Default false:
	// deletions are remembered per viewer and never resurrect.
	ResurrectDeleted bool
	// JWT Configuration
	JWTSecret string
	// Notification store backend: "memory", "sqlite" or "redis"
	StoreBackend string
	SQLitePath   string
	// Redis Configuration (for the redis store backend)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	// Kafka Configuration (optional - product events nudge the reconciler)
	KafkaBrokers      []string
	KafkaTopicProduct string
	KafkaGroupID      string
	UseKafka          bool
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env file is optional, continue with environment variables
	}

	// Parse Kafka brokers (comma-separated)
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9093")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	for i, broker := range kafkaBrokers {
		kafkaBrokers[i] = strings.TrimSpace(broker)
	}

	return &Config{
		Port:        getEnv("PORT", "8082"),
		Environment: getEnv("ENVIRONMENT", "development"),
		// Remote marketplace API
		MarketplaceBaseURL: getEnv("MARKETPLACE_API_URL", "http://localhost:3000"),
		RequestTimeout:     time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		// Listing
		PageSize: getEnvAsInt("PAGE_SIZE", 8),
		// Notification reconciler (30s matches the dashboard refresh cadence)
		PollInterval:     time.Duration(getEnvAsInt("POLL_INTERVAL_SECONDS", 30)) * time.Second,
		ResurrectDeleted: getEnvAsBool("RESURRECT_DELETED", false),
		// JWT Configuration
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production-min-32-chars"),
		// Notification store
		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		SQLitePath:   getEnv("SQLITE_PATH", "./notifications.db"),
		// Redis Configuration
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		// Kafka Configuration (optional)
		KafkaBrokers:      kafkaBrokers,
		KafkaTopicProduct: getEnv("KAFKA_TOPIC_PRODUCTS", "marketplace.products"),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "marketplace-service"),
		UseKafka:          getEnvAsBool("USE_KAFKA", false),
	}
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return strings.ToLower(value) == "true" || value == "1"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	defaultJWTSecret = "123456"
)

type Config struct {
	Debug   bool
	Storage string

	PostgresHost         string
	PostgresPort         string
	PostgresUser         string
	PostgresPassword     string
	PostgresDatabase     string
	PostgresMaxOpenConns int

	KafkaEnabled bool
	KafkaHost    string
	KafkaPort    string
	KafkaTopic   string
	KafkaGroup   string

	HTTPHost string
	HTTPPort string
	GRPCHost string
	GRPCPort string

	JWTSecret string

	DeleteChunkThreshold int
	DeleteChunkSize      int
	AuthorDeletionMode   string
}

// Load reads the configuration from the environment. With DEBUG=1 a .env
// file in the working directory is loaded first.
func Load() (*Config, error) {
	debug := os.Getenv("DEBUG") == "1"
	if debug {
		godotenv.Load()
	}

	config := &Config{
		Debug:   debug,
		Storage: getEnv("STORAGE", StoragePostgres),

		PostgresHost:     getEnv("POSTGRES_HOST", "127.0.0.1"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDatabase: getEnv("POSTGRES_DB", "postgres"),

		KafkaEnabled: getEnv("KAFKA_ENABLED", "1") == "1",
		KafkaHost:    getEnv("KAFKA_HOST", "127.0.0.1"),
		KafkaPort:    getEnv("KAFKA_PORT", "9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "common"),
		KafkaGroup:   getEnv("KAFKA_GROUP", "comments"),

		HTTPHost: getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCHost: getEnv("GRPC_HOST", "0.0.0.0"),
		GRPCPort: getEnv("GRPC_PORT", "9090"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AuthorDeletionMode: getEnv("AUTHOR_DELETION_MODE", "subtree"),
	}

	var err error
	if config.PostgresMaxOpenConns, err = getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if config.DeleteChunkThreshold, err = getEnvInt("DELETE_CHUNK_THRESHOLD", 1000); err != nil {
		return nil, err
	}
	if config.DeleteChunkSize, err = getEnvInt("DELETE_CHUNK_SIZE", 500); err != nil {
		return nil, err
	}

	if config.JWTSecret == "" && debug {
		config.JWTSecret = defaultJWTSecret
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside debug mode")
	}
	if c.AuthorDeletionMode != "subtree" && c.AuthorDeletionMode != "own" {
		return fmt.Errorf("AUTHOR_DELETION_MODE must be \"subtree\" or \"own\", got %q", c.AuthorDeletionMode)
	}
	if c.DeleteChunkThreshold < 0 {
		return fmt.Errorf("DELETE_CHUNK_THRESHOLD must not be negative")
	}
	if c.DeleteChunkSize <= 0 {
		return fmt.Errorf("DELETE_CHUNK_SIZE must be positive")
	}
	return nil
}

func getEnv(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

// Package config provides configuration management for docsync,
// handling environment variables and runtime settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Qdrant     QdrantConfig     `json:"qdrant"`
	Embeddings EmbeddingsConfig `json:"embeddings"`
	GC         GCConfig         `json:"gc"`
	Logging    LoggingConfig    `json:"logging"`
	Upload     UploadConfig     `json:"upload"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         int `json:"port"`
	ReadTimeout  int `json:"read_timeout_seconds"`
	WriteTimeout int `json:"write_timeout_seconds"`
}

// DatabaseConfig represents PostgreSQL metadata-store configuration
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"-"` // Never serialize password
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	QueryTimeout    time.Duration `json:"query_timeout"`
}

// DSN returns a lib/pq connection string for this configuration
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// QdrantConfig represents Qdrant vector database configuration
type QdrantConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	APIKey         string `json:"-"` // Never serialize API key
	UseTLS         bool   `json:"use_tls"`
	Collection     string `json:"collection"`
	Dimension      int    `json:"dimension"`
	RetryAttempts  int    `json:"retry_attempts"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// EmbeddingsConfig represents the embedding provider configuration
type EmbeddingsConfig struct {
	APIKey         string `json:"-"` // Never serialize API key
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	Dimension      int    `json:"dimension"`
	BatchSize      int    `json:"batch_size"`
	RequestTimeout int    `json:"request_timeout_seconds"`
	RateLimitRPM   int    `json:"rate_limit_rpm"`
}

// GCConfig represents Auto-GC scheduling configuration
type GCConfig struct {
	IntervalHours int `json:"interval_hours"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

// UploadConfig represents ingest input-validation limits and the location
// documents' original bytes are persisted to, for SyncStateMachine's Split
// step (and resync) to re-read from.
type UploadConfig struct {
	MaxSizeBytes    int64    `json:"max_size_bytes"`
	AllowedMimeType []string `json:"allowed_mime_types"`
	StorageDir      string   `json:"storage_dir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3000,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "docsync",
			User:            "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			QueryTimeout:    30 * time.Second,
		},
		Qdrant: QdrantConfig{
			Host:           "localhost",
			Port:           6334,
			Collection:     "docsync",
			Dimension:      1536,
			RetryAttempts:  3,
			TimeoutSeconds: 30,
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "text-embedding-3-small",
			Dimension:      1536,
			BatchSize:      200,
			RequestTimeout: 60,
			RateLimitRPM:   3000,
		},
		GC: GCConfig{
			IntervalHours: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  true,
		},
		Upload: UploadConfig{
			MaxSizeBytes:    20 * 1024 * 1024,
			AllowedMimeType: []string{"text/markdown", "text/plain"},
			StorageDir:      "./data/sources",
		},
	}
}

// LoadConfig loads configuration from environment variables and defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := DefaultConfig()
	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	loadServerConfig(config)
	loadDatabaseConfig(config)
	loadQdrantConfig(config)
	loadEmbeddingsConfig(config)
	loadGCConfig(config)
	loadLoggingConfig(config)
	loadUploadConfig(config)
}

func loadServerConfig(config *Config) {
	config.Server.Port = getIntEnvWithDefault("DOCSYNC_PORT", config.Server.Port)
	config.Server.ReadTimeout = getIntEnvWithDefault("DOCSYNC_READ_TIMEOUT_SECONDS", config.Server.ReadTimeout)
	config.Server.WriteTimeout = getIntEnvWithDefault("DOCSYNC_WRITE_TIMEOUT_SECONDS", config.Server.WriteTimeout)
}

func loadDatabaseConfig(config *Config) {
	config.Database.Host = getStringEnvWithDefault("DOCSYNC_DB_HOST", config.Database.Host)
	config.Database.Port = getIntEnvWithDefault("DOCSYNC_DB_PORT", config.Database.Port)
	config.Database.Name = getStringEnvWithDefault("DOCSYNC_DB_NAME", config.Database.Name)
	config.Database.User = getStringEnvWithDefault("DOCSYNC_DB_USER", config.Database.User)
	config.Database.Password = getStringEnvWithDefault("DOCSYNC_DB_PASSWORD", config.Database.Password)
	config.Database.SSLMode = getStringEnvWithDefault("DOCSYNC_DB_SSLMODE", config.Database.SSLMode)
	config.Database.MaxOpenConns = getIntEnvWithDefault("DOCSYNC_DB_MAX_OPEN_CONNS", config.Database.MaxOpenConns)
	config.Database.MaxIdleConns = getIntEnvWithDefault("DOCSYNC_DB_MAX_IDLE_CONNS", config.Database.MaxIdleConns)

	if v := os.Getenv("DOCSYNC_DB_CONN_MAX_LIFETIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Database.ConnMaxLifetime = d
		}
	}
	if v := os.Getenv("DOCSYNC_DB_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Database.QueryTimeout = d
		}
	}
}

func loadQdrantConfig(config *Config) {
	config.Qdrant.Host = getStringEnvWithDefault("DOCSYNC_QDRANT_HOST", config.Qdrant.Host)
	config.Qdrant.Port = getIntEnvWithDefault("DOCSYNC_QDRANT_PORT", config.Qdrant.Port)
	config.Qdrant.APIKey = getStringEnvWithDefault("DOCSYNC_QDRANT_API_KEY", config.Qdrant.APIKey)
	config.Qdrant.UseTLS = getBoolEnvWithDefault("DOCSYNC_QDRANT_USE_TLS", config.Qdrant.UseTLS)
	config.Qdrant.Collection = getStringEnvWithDefault("DOCSYNC_QDRANT_COLLECTION", config.Qdrant.Collection)
	config.Qdrant.Dimension = getIntEnvWithDefault("DOCSYNC_VECTOR_DIMENSION", config.Qdrant.Dimension)
	config.Qdrant.RetryAttempts = getIntEnvWithDefault("DOCSYNC_QDRANT_RETRY_ATTEMPTS", config.Qdrant.RetryAttempts)
	config.Qdrant.TimeoutSeconds = getIntEnvWithDefault("DOCSYNC_QDRANT_TIMEOUT_SECONDS", config.Qdrant.TimeoutSeconds)
}

func loadEmbeddingsConfig(config *Config) {
	config.Embeddings.APIKey = getStringEnvWithDefault("DOCSYNC_EMBEDDING_API_KEY", config.Embeddings.APIKey)
	config.Embeddings.BaseURL = getStringEnvWithDefault("DOCSYNC_EMBEDDING_BASE_URL", config.Embeddings.BaseURL)
	config.Embeddings.Model = getStringEnvWithDefault("DOCSYNC_EMBEDDING_MODEL", config.Embeddings.Model)
	config.Embeddings.Dimension = getIntEnvWithDefault("DOCSYNC_VECTOR_DIMENSION", config.Embeddings.Dimension)
	config.Embeddings.BatchSize = getIntEnvWithDefault("DOCSYNC_EMBEDDING_BATCH_SIZE", config.Embeddings.BatchSize)
	config.Embeddings.RequestTimeout = getIntEnvWithDefault("DOCSYNC_EMBEDDING_REQUEST_TIMEOUT_SECONDS", config.Embeddings.RequestTimeout)
	config.Embeddings.RateLimitRPM = getIntEnvWithDefault("DOCSYNC_EMBEDDING_RATE_LIMIT_RPM", config.Embeddings.RateLimitRPM)
}

func loadGCConfig(config *Config) {
	config.GC.IntervalHours = getIntEnvWithDefault("DOCSYNC_GC_INTERVAL_HOURS", config.GC.IntervalHours)
}

func loadLoggingConfig(config *Config) {
	config.Logging.Level = getStringEnvWithDefault("DOCSYNC_LOG_LEVEL", config.Logging.Level)
	config.Logging.JSON = getBoolEnvWithDefault("DOCSYNC_LOG_JSON", config.Logging.JSON)
}

func loadUploadConfig(config *Config) {
	config.Upload.MaxSizeBytes = getInt64EnvWithDefault("DOCSYNC_MAX_UPLOAD_SIZE", config.Upload.MaxSizeBytes)
	config.Upload.StorageDir = getStringEnvWithDefault("DOCSYNC_STORAGE_DIR", config.Upload.StorageDir)
}

func getStringEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateServerConfig(); err != nil {
		return err
	}
	if err := c.validateDatabaseConfig(); err != nil {
		return err
	}
	if err := c.validateQdrantConfig(); err != nil {
		return err
	}
	if err := c.validateEmbeddingsConfig(); err != nil {
		return err
	}
	return c.validateUploadConfig()
}

func (c *Config) validateServerConfig() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateDatabaseConfig() error {
	if c.Database.Host == "" {
		return errors.New("database host cannot be empty")
	}
	if c.Database.Name == "" {
		return errors.New("database name cannot be empty")
	}
	if c.Database.MaxOpenConns <= 0 {
		return errors.New("max open connections must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return errors.New("max idle connections cannot exceed max open connections")
	}
	return nil
}

func (c *Config) validateQdrantConfig() error {
	if c.Qdrant.Host == "" {
		return errors.New("qdrant host cannot be empty")
	}
	if c.Qdrant.Collection == "" {
		return errors.New("qdrant collection cannot be empty")
	}
	if c.Qdrant.Dimension <= 0 {
		return errors.New("qdrant dimension must be positive")
	}
	return nil
}

func (c *Config) validateEmbeddingsConfig() error {
	if c.Embeddings.Model == "" {
		return errors.New("embedding model cannot be empty")
	}
	if c.Embeddings.BatchSize <= 0 {
		return errors.New("embedding batch size must be positive")
	}
	if c.Embeddings.Dimension != c.Qdrant.Dimension {
		return errors.New("embedding dimension must match qdrant dimension")
	}
	return nil
}

func (c *Config) validateUploadConfig() error {
	if c.Upload.MaxSizeBytes <= 0 {
		return errors.New("max upload size must be positive")
	}
	return nil
}

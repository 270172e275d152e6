package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Upload UploadConfig
	Relay  RelayConfig
	Audit  AuditConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// UploadConfig holds ingress thresholds for the upload pipeline
type UploadConfig struct {
	// MaxMemoryBytes is the ceiling for fully in-memory processing.
	// Uploads strictly larger than this are spilled to a temp file.
	MaxMemoryBytes int64
	// ChunkBytes is the copy chunk size used while spilling.
	ChunkBytes int
	// SpoolDir is where spilled files live; empty means os.TempDir().
	SpoolDir string
	// ExtractWorkers bounds concurrent PDF text extractions.
	ExtractWorkers int64
}

// RelayConfig holds third-party reporting service configuration
type RelayConfig struct {
	ReportURL string
	UploadURL string
	Secret    string
	Timeout   time.Duration
}

// AuditConfig holds the submissions audit log configuration
type AuditConfig struct {
	DBPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Upload: UploadConfig{
			MaxMemoryBytes: getEnvAsInt64("W2_MAX_MEMORY_BYTES", 2*1024*1024),
			ChunkBytes:     getEnvAsInt("W2_CHUNK_BYTES", 64*1024),
			SpoolDir:       getEnv("W2_SPOOL_DIR", ""),
			ExtractWorkers: getEnvAsInt64("W2_EXTRACT_WORKERS", 4),
		},
		Relay: RelayConfig{
			ReportURL: getEnv("THIRD_PARTY_REPORT_URL", "http://localhost:8081/mock/report"),
			UploadURL: getEnv("THIRD_PARTY_UPLOAD_URL", "http://localhost:8081/mock/upload"),
			Secret:    getEnv("API_SECRET", ""),
			Timeout:   getEnvAsDuration("THIRD_PARTY_TIMEOUT", 30*time.Second),
		},
		Audit: AuditConfig{
			DBPath: getEnv("AUDIT_DB", "db/submissions.db"),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Relay.Secret == "" {
		return NewAppError("CONFIG_ERROR", "API_SECRET is required", ErrInvalidInput)
	}
	if c.Relay.ReportURL == "" || c.Relay.UploadURL == "" {
		return NewAppError("CONFIG_ERROR", "THIRD_PARTY_REPORT_URL and THIRD_PARTY_UPLOAD_URL are required", ErrInvalidInput)
	}
	if c.Upload.MaxMemoryBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "W2_MAX_MEMORY_BYTES must be positive", ErrInvalidInput)
	}
	if c.Upload.ChunkBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "W2_CHUNK_BYTES must be positive", ErrInvalidInput)
	}
	if c.Upload.ExtractWorkers <= 0 {
		return NewAppError("CONFIG_ERROR", "W2_EXTRACT_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}

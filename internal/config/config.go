package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Gemini settings
	GoogleAPIKey   string
	GeminiModel    string
	EmbeddingModel string

	// Qdrant settings
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	// Chunking settings
	ChunkSize    int
	ChunkOverlap int

	// Retrieval settings
	TopK int

	// Chat history / rate limiting
	DBPath          string
	HistoryLimit    int
	RateLimit       int
	RateWindowHours int

	// Upload / ingestion settings
	UploadDir string

	// Google Drive settings
	DriveCredentialsPath string
	DriveTokenPath       string

	// Server settings
	APIPort   string
	LogLevel  string
	LogFormat string
}

// AllowedExtensions is the set of file extensions accepted for upload ingestion.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".docx": true,
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded automatically; variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up a few levels looking for a project-root .env
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		GoogleAPIKey:         os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		EmbeddingModel:       getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		QdrantURL:            getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:     getEnv("QDRANT_COLLECTION", "documents"),
		DBPath:               getEnv("DB_PATH", "./data/kitab.db"),
		UploadDir:            getEnv("UPLOAD_DIR", "./uploads"),
		DriveCredentialsPath: getEnv("DRIVE_CREDENTIALS_PATH", "credentials.json"),
		DriveTokenPath:       getEnv("DRIVE_TOKEN_PATH", "token.json"),
		APIPort:              getEnv("API_PORT", "8000"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
	}

	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required")
	}

	if cfg.QdrantVectorSize, err = getEnvInt("QDRANT_VECTOR_SIZE", 768); err != nil {
		return nil, err
	}
	if cfg.QdrantVectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}

	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be non-negative and smaller than CHUNK_SIZE")
	}

	if cfg.TopK, err = getEnvInt("TOP_K", 4); err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("TOP_K must be greater than 0")
	}

	if cfg.HistoryLimit, err = getEnvInt("HISTORY_LIMIT", 50); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getEnvInt("RATE_LIMIT", 25); err != nil {
		return nil, err
	}
	if cfg.RateWindowHours, err = getEnvInt("RATE_WINDOW_HOURS", 1); err != nil {
		return nil, err
	}

	// Create directories for the DB file and uploads up front
	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.UploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

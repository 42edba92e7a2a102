package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	BlobMemory   = "memory"
	BlobSupabase = "supabase"
	BlobS3       = "s3"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)
	ShutdownTimeout    time.Duration

	// Project store: file, redis or postgres
	ProjectStore   string
	ProjectDir     string
	RedisURL       string
	RedisKeyPrefix string
	DatabaseURL    string
	RecordHistory  bool // Persist finished render jobs to Postgres

	// Blob store: memory, supabase or s3
	BlobStore             string
	BlobPrefix            string
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string
	S3Bucket              string
	S3Region              string
	S3Endpoint            string
	S3AccessKeyID         string
	S3SecretAccessKey     string
	S3PublicURL           string

	// Rendering
	TempDir           string
	FFmpegPath        string
	EspeakPath        string // Empty = look up espeak-ng/espeak on PATH
	DemoTickInterval  time.Duration
	PresetCatalogPath string // Optional YAML override of the built-in presets

	// OpenAI (Whisper duration probe; empty = ffprobe)
	OpenAIKey     string
	OpenAIBaseURL string

	// Gemini (overlay refine model)
	GeminiModel   string
	GeminiBaseURL string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		ShutdownTimeout:       getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		ProjectStore:          getEnv("PROJECT_STORE", StoreFile),
		ProjectDir:            getEnv("PROJECT_DIR", "data/projects"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisKeyPrefix:        getEnv("REDIS_KEY_PREFIX", "ugcstudio:"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RecordHistory:         getEnvBool("RECORD_HISTORY", false),
		BlobStore:             getEnv("BLOB_STORE", BlobMemory),
		BlobPrefix:            getEnv("BLOB_PREFIX", "renders"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "ugc-renders"),
		S3Bucket:              getEnv("S3_BUCKET", ""),
		S3Region:              getEnv("S3_REGION", "auto"),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:         getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:     getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PublicURL:           getEnv("S3_PUBLIC_URL", ""),
		TempDir:               getEnv("TEMP_DIR", "/tmp/ugcstudio"),
		FFmpegPath:            getEnv("FFMPEG_PATH", "ffmpeg"),
		EspeakPath:            getEnv("ESPEAK_PATH", ""),
		DemoTickInterval:      getEnvDuration("DEMO_TICK_INTERVAL", 500*time.Millisecond),
		PresetCatalogPath:     getEnv("PRESET_CATALOG_PATH", ""),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", ""),
		GeminiBaseURL:         getEnv("GEMINI_BASE_URL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ProjectStore {
	case StoreFile:
		if c.ProjectDir == "" {
			return fmt.Errorf("PROJECT_DIR is required when PROJECT_STORE=file")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when PROJECT_STORE=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when PROJECT_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown PROJECT_STORE %q (want file, redis or postgres)", c.ProjectStore)
	}

	if c.RecordHistory && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when RECORD_HISTORY=true")
	}

	switch c.BlobStore {
	case BlobMemory:
	case BlobSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when BLOB_STORE=supabase")
		}
	case BlobS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_STORE=s3")
		}
	default:
		return fmt.Errorf("unknown BLOB_STORE %q (want memory, supabase or s3)", c.BlobStore)
	}

	if c.DemoTickInterval <= 0 {
		return fmt.Errorf("DEMO_TICK_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("750ms") or a bare number of milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms := getEnvInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

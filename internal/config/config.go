// Package config loads the converter's runtime configuration from the
// environment. Every knob has a default, so a bare deployment works without
// any variables set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Raster engine selectors for Config.Engine.
const (
	EngineFitz    = "fitz"
	EnginePoppler = "poppler"
)

// Config holds all settings for one converter deployment.
type Config struct {
	// Engine selects the page renderer: EngineFitz renders in-process,
	// EnginePoppler shells out to pdftoppm.
	Engine      string
	PdftoppmBin string

	// WorkerLimit caps concurrent document conversions and concurrent
	// URL fetches.
	WorkerLimit int

	DefaultJPEGQuality int
	DefaultDPI         int
	MaxDPI             int

	// Per-document output ceilings. Zero disables a ceiling.
	MaxPagesPerDoc      int
	MaxImageBytesPerDoc int64

	FetchTimeout  time.Duration
	MaxFetchBytes int64

	// MaxRequestBytes caps the raw request body. It sits well above
	// MaxFetchBytes because inline documents arrive base64-inflated.
	MaxRequestBytes int64

	// RenderTimeout bounds one document's conversion. InvocationTimeout
	// bounds the whole request; DispatchReserve is how much of it must
	// remain for a document to still be dispatched.
	RenderTimeout     time.Duration
	InvocationTimeout time.Duration
	DispatchReserve   time.Duration

	S3Endpoint string
	S3Region   string
}

// Load reads the configuration from the environment, consulting a local
// .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Engine:      getEnv("RASTER_ENGINE", EngineFitz),
		PdftoppmBin: getEnv("PDFTOPPM_BIN", "pdftoppm"),

		WorkerLimit: getEnvAsInt("WORKER_LIMIT", 3),

		DefaultJPEGQuality: getEnvAsInt("DEFAULT_JPEG_QUALITY", 85),
		DefaultDPI:         getEnvAsInt("DEFAULT_DPI", 150),
		MaxDPI:             getEnvAsInt("MAX_DPI", 600),

		MaxPagesPerDoc:      getEnvAsInt("MAX_PAGES_PER_DOC", 500),
		MaxImageBytesPerDoc: getEnvAsInt64("MAX_IMAGE_BYTES_PER_DOC", 64<<20),

		FetchTimeout:  getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxFetchBytes: getEnvAsInt64("MAX_FETCH_BYTES", 32<<20),

		MaxRequestBytes: getEnvAsInt64("MAX_REQUEST_BYTES", 128<<20),

		RenderTimeout:     getEnvAsDuration("RENDER_TIMEOUT", 2*time.Minute),
		InvocationTimeout: getEnvAsDuration("INVOCATION_TIMEOUT", 5*time.Minute),
		DispatchReserve:   getEnvAsDuration("DISPATCH_RESERVE", 10*time.Second),

		S3Endpoint: getEnv("S3_ENDPOINT", "s3.amazonaws.com"),
		S3Region:   getEnv("S3_REGION", ""),
	}

	if cfg.Engine != EngineFitz && cfg.Engine != EnginePoppler {
		return nil, fmt.Errorf("unknown RASTER_ENGINE %q", cfg.Engine)
	}
	if cfg.WorkerLimit < 1 {
		return nil, fmt.Errorf("WORKER_LIMIT must be at least 1, got %d", cfg.WorkerLimit)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

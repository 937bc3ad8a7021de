package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConverterEnv blanks every variable Load consults so a test sees pure
// defaults regardless of the host environment.
func clearConverterEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"RASTER_ENGINE", "PDFTOPPM_BIN", "WORKER_LIMIT",
		"DEFAULT_JPEG_QUALITY", "DEFAULT_DPI", "MAX_DPI",
		"MAX_PAGES_PER_DOC", "MAX_IMAGE_BYTES_PER_DOC",
		"FETCH_TIMEOUT", "MAX_FETCH_BYTES", "MAX_REQUEST_BYTES",
		"RENDER_TIMEOUT", "INVOCATION_TIMEOUT", "DISPATCH_RESERVE",
		"S3_ENDPOINT", "S3_REGION",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConverterEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EngineFitz, cfg.Engine)
	assert.Equal(t, "pdftoppm", cfg.PdftoppmBin)
	assert.Equal(t, 3, cfg.WorkerLimit)
	assert.Equal(t, 85, cfg.DefaultJPEGQuality)
	assert.Equal(t, 150, cfg.DefaultDPI)
	assert.Equal(t, 600, cfg.MaxDPI)
	assert.Equal(t, 500, cfg.MaxPagesPerDoc)
	assert.Equal(t, int64(64<<20), cfg.MaxImageBytesPerDoc)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, int64(32<<20), cfg.MaxFetchBytes)
	assert.Equal(t, int64(128<<20), cfg.MaxRequestBytes)
	assert.Equal(t, 2*time.Minute, cfg.RenderTimeout)
	assert.Equal(t, 5*time.Minute, cfg.InvocationTimeout)
	assert.Equal(t, 10*time.Second, cfg.DispatchReserve)
	assert.Equal(t, "s3.amazonaws.com", cfg.S3Endpoint)
}

func TestLoadOverrides(t *testing.T) {
	clearConverterEnv(t)
	t.Setenv("RASTER_ENGINE", EnginePoppler)
	t.Setenv("PDFTOPPM_BIN", "/opt/poppler/bin/pdftoppm")
	t.Setenv("WORKER_LIMIT", "8")
	t.Setenv("DEFAULT_JPEG_QUALITY", "70")
	t.Setenv("DEFAULT_DPI", "200")
	t.Setenv("MAX_PAGES_PER_DOC", "25")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("RENDER_TIMEOUT", "90s")
	t.Setenv("S3_ENDPOINT", "minio.internal:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnginePoppler, cfg.Engine)
	assert.Equal(t, "/opt/poppler/bin/pdftoppm", cfg.PdftoppmBin)
	assert.Equal(t, 8, cfg.WorkerLimit)
	assert.Equal(t, 70, cfg.DefaultJPEGQuality)
	assert.Equal(t, 200, cfg.DefaultDPI)
	assert.Equal(t, 25, cfg.MaxPagesPerDoc)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 90*time.Second, cfg.RenderTimeout)
	assert.Equal(t, "minio.internal:9000", cfg.S3Endpoint)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	clearConverterEnv(t)
	t.Setenv("WORKER_LIMIT", "many")
	t.Setenv("FETCH_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.WorkerLimit)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	clearConverterEnv(t)
	t.Setenv("RASTER_ENGINE", "ghostscript")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RASTER_ENGINE")
}

func TestLoadRejectsZeroWorkerLimit(t *testing.T) {
	clearConverterEnv(t)
	t.Setenv("WORKER_LIMIT", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKER_LIMIT")
}

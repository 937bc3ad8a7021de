package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/docpipe/pdf2jpeg/internal/config"
	"github.com/docpipe/pdf2jpeg/internal/fetch"
	"github.com/docpipe/pdf2jpeg/internal/models"
	"github.com/docpipe/pdf2jpeg/internal/raster"
)

// ConverterFunction is the whole pipeline behind one deployment: resolve the
// payload, convert every document, pack the archive, encode the envelope.
type ConverterFunction struct {
	resolver    *Resolver
	coordinator *Coordinator
	config      *config.Config
}

// NewConverter loads configuration from the environment and wires the
// pipeline around the configured raster engine.
func NewConverter() (*ConverterFunction, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}
	f := NewConverterWithEngine(cfg, engine)
	slog.Info("PDF converter initialized.", "engine", cfg.Engine, "workerLimit", cfg.WorkerLimit)
	return f, nil
}

// NewConverterWithEngine wires the pipeline around a caller-supplied engine.
// Tests use it to substitute a fake renderer.
func NewConverterWithEngine(cfg *config.Config, engine raster.Engine) *ConverterFunction {
	mux := fetch.NewMux(fetch.Options{
		HTTPTimeout: cfg.FetchTimeout,
		MaxBytes:    cfg.MaxFetchBytes,
		S3Endpoint:  cfg.S3Endpoint,
		S3Region:    cfg.S3Region,
	})
	rasterizer := raster.NewRasterizer(engine, raster.Limits{
		MaxPages:      cfg.MaxPagesPerDoc,
		MaxImageBytes: cfg.MaxImageBytesPerDoc,
	})
	return &ConverterFunction{
		resolver:    NewResolver(mux, cfg),
		coordinator: NewCoordinator(rasterizer, cfg),
		config:      cfg,
	}
}

// MaxRequestBytes returns the configured ceiling on a raw request body.
func (f *ConverterFunction) MaxRequestBytes() int64 {
	return f.config.MaxRequestBytes
}

func buildEngine(cfg *config.Config) (raster.Engine, error) {
	switch cfg.Engine {
	case config.EnginePoppler:
		return raster.NewPopplerEngine(cfg.PdftoppmBin), nil
	case config.EngineFitz:
		return raster.NewFitzEngine(), nil
	default:
		return nil, fmt.Errorf("unknown raster engine %q", cfg.Engine)
	}
}

// Process runs one invocation end to end. The error return is non-nil only
// when the payload as a whole is unusable; anything after resolution is
// reported inside the response envelope.
func (f *ConverterFunction) Process(ctx context.Context, payload []byte) (*models.ConvertResponse, error) {
	logCtx := slog.With("invocationId", uuid.NewString())

	if f.config.InvocationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.InvocationTimeout)
		defer cancel()
	}

	docs, quality, err := f.resolver.Resolve(ctx, payload)
	if err != nil {
		logCtx.Error("Failed to resolve request payload.", "error", err)
		return nil, err
	}
	logCtx.Info("Resolved input documents.", "documents", len(docs), "jpegQuality", quality.JPEG, "dpi", quality.DPI)

	results := f.coordinator.Process(ctx, logCtx, docs, quality)

	archive, err := BuildArchive(results, len(docs) > 1)
	if err != nil {
		logCtx.Error("Failed to assemble archive.", "error", err)
		return nil, models.NewInternal("failed to assemble archive", err)
	}

	resp := encodeResponse(&models.BatchResult{Results: results, Archive: archive})

	converted := 0
	for _, res := range results {
		if res.Status == models.StatusOK {
			converted++
		}
	}
	logCtx.Info("Invocation complete.", "statusCode", resp.StatusCode, "converted", converted, "failed", len(results)-converted, "archiveBytes", len(archive))
	return resp, nil
}

// encodeResponse maps a batch outcome onto the response envelope. Partial
// success is a 200: callers inspect the per-document statuses. A batch where
// everything failed is a 400 when every failure was the caller's input, a
// 500 otherwise.
func encodeResponse(batch *models.BatchResult) *models.ConvertResponse {
	resp := &models.ConvertResponse{Results: make([]models.DocumentStatus, len(batch.Results))}

	failed := 0
	callerFault := true
	for i, res := range batch.Results {
		status := models.DocumentStatus{
			Name:      res.Name,
			Status:    res.Status,
			PageCount: len(res.Images),
			Truncated: res.Truncated,
		}
		if res.Status == models.StatusFailed {
			failed++
			if res.Err != nil {
				status.Error = res.Err.Code()
			}
			if res.Err == nil || res.Err.Kind != models.KindInvalidInput {
				callerFault = false
			}
		}
		resp.Results[i] = status
	}

	if failed == len(batch.Results) && failed > 0 {
		if callerFault {
			resp.StatusCode = http.StatusBadRequest
		} else {
			resp.StatusCode = http.StatusInternalServerError
		}
		resp.Error = "no documents could be converted"
		return resp
	}

	resp.StatusCode = http.StatusOK
	if batch.HasContent() {
		resp.IsBase64Encoded = true
		resp.Body = base64.StdEncoding.EncodeToString(batch.Archive)
	}
	return resp
}

// ErrorEnvelope builds the envelope for an invocation-level failure, keeping
// raw error detail out of the response body.
func ErrorEnvelope(err error) *models.ConvertResponse {
	if models.KindOf(err) == models.KindInvalidInput {
		msg := models.AsError(err).Msg
		if msg == "" {
			msg = string(models.KindInvalidInput)
		}
		return &models.ConvertResponse{StatusCode: http.StatusBadRequest, Error: msg}
	}
	return &models.ConvertResponse{StatusCode: http.StatusInternalServerError, Error: string(models.KindInternal)}
}

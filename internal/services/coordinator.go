package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docpipe/pdf2jpeg/internal/config"
	"github.com/docpipe/pdf2jpeg/internal/models"
	"github.com/docpipe/pdf2jpeg/internal/raster"
)

// Coordinator fans resolved documents out to the rasterizer under a fixed
// worker cap and reassembles the outcomes in input order. One document's
// failure, panic or timeout never aborts its siblings.
type Coordinator struct {
	rasterizer      *raster.Rasterizer
	workers         int
	renderTimeout   time.Duration
	dispatchReserve time.Duration
}

func NewCoordinator(rasterizer *raster.Rasterizer, cfg *config.Config) *Coordinator {
	return &Coordinator{
		rasterizer:      rasterizer,
		workers:         cfg.WorkerLimit,
		renderTimeout:   cfg.RenderTimeout,
		dispatchReserve: cfg.DispatchReserve,
	}
}

// Process converts every document and returns exactly one result per input,
// in input order.
func (c *Coordinator) Process(ctx context.Context, logCtx *slog.Logger, docs []models.SourceDocument, quality models.Quality) []models.DocumentResult {
	logCtx.Info("Dispatching documents to workers.", "documents", len(docs), "workerLimit", c.workers)

	results := make([]models.DocumentResult, len(docs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)

	for i := range docs {
		doc := docs[i]
		eg.Go(func() error {
			// Never fail the group; isolation is the whole point.
			results[doc.Index] = c.processOne(gctx, logCtx, doc, quality)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func (c *Coordinator) processOne(ctx context.Context, logCtx *slog.Logger, doc models.SourceDocument, quality models.Quality) (res models.DocumentResult) {
	defer func() {
		if rec := recover(); rec != nil {
			logCtx.Error("Worker panicked while converting document.", "document", doc.Name, "panic", rec)
			res = failedResult(doc.Name, models.NewInternal("document processing failed", fmt.Errorf("panic: %v", rec)))
		}
	}()

	if doc.Err != nil {
		logCtx.Warn("Document failed during resolution.", "document", doc.Name, "error", doc.Err)
		return failedResult(doc.Name, doc.Err)
	}

	if !c.hasTimeToDispatch(ctx) {
		logCtx.Warn("Invocation deadline too close, skipping document.", "document", doc.Name)
		return failedResult(doc.Name, models.NewNotProcessed("invocation deadline reached before dispatch"))
	}

	renderCtx := ctx
	if c.renderTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, c.renderTimeout)
		defer cancel()
	}

	res = c.rasterizer.Rasterize(renderCtx, doc, quality)
	if res.Status == models.StatusFailed {
		logCtx.Warn("Document failed to convert.", "document", doc.Name, "error", res.Err)
		return res
	}
	logCtx.Info("Document converted.", "document", doc.Name, "pages", len(res.Images), "totalPages", res.TotalPages, "truncated", res.Truncated)
	return res
}

// hasTimeToDispatch reports whether enough of the invocation deadline
// remains to start another document.
func (c *Coordinator) hasTimeToDispatch(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) > c.dispatchReserve
}

func failedResult(name string, err *models.Error) models.DocumentResult {
	return models.DocumentResult{Name: name, Status: models.StatusFailed, Err: err}
}

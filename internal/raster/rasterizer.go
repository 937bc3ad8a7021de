package raster

import (
	"bytes"
	"context"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/docpipe/pdf2jpeg/internal/models"
)

// pageCount is swappable in tests.
var pageCount = api.PageCount

// Limits bound the output volume of a single document. Zero disables a
// ceiling.
type Limits struct {
	MaxPages      int
	MaxImageBytes int64
}

// Rasterizer converts one resolved document into ordered page images. It
// preflights the document, delegates rendering to the engine, classifies
// failures and applies the output ceilings.
type Rasterizer struct {
	engine Engine
	limits Limits
}

func NewRasterizer(engine Engine, limits Limits) *Rasterizer {
	return &Rasterizer{engine: engine, limits: limits}
}

// Rasterize renders doc's pages as JPEGs at the requested quality. It never
// returns an error; failures land on the result with a classified reason so
// sibling documents keep going.
func (r *Rasterizer) Rasterize(ctx context.Context, doc models.SourceDocument, quality models.Quality) models.DocumentResult {
	res := models.DocumentResult{Name: doc.Name, Status: models.StatusFailed}

	// pdfcpu writes into the configuration while validating encrypted
	// documents, so concurrent calls may not share one.
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	totalPages, err := pageCount(bytes.NewReader(doc.Bytes), conf)
	if err != nil {
		res.Err = ClassifyConversion(err)
		return res
	}
	res.TotalPages = totalPages

	if totalPages == 0 {
		// A structurally valid document with no pages converts to nothing.
		res.Status = models.StatusOK
		return res
	}

	opts := RenderOptions{
		DPI:         quality.DPI,
		JPEGQuality: quality.JPEG,
		MaxPages:    r.limits.MaxPages,
	}
	pages, err := r.engine.Render(ctx, doc.Bytes, opts)
	if err != nil {
		res.Err = ClassifyConversion(err)
		return res
	}
	if len(pages) == 0 {
		res.Err = models.NewConversionError(models.ReasonOther, "engine produced no pages", nil)
		return res
	}

	if opts.MaxPages > 0 && len(pages) > opts.MaxPages {
		pages = pages[:opts.MaxPages]
	}
	// Truncation is only ever attributed to a configured ceiling. An engine
	// delivering fewer pages than the preflight counted is reported as is.
	if opts.MaxPages > 0 && totalPages > opts.MaxPages {
		res.Truncated = true
		res.Limit = models.LimitPages
	}

	if r.limits.MaxImageBytes > 0 {
		var used int64
		for i, page := range pages {
			used += int64(len(page))
			if used > r.limits.MaxImageBytes {
				pages = pages[:i]
				res.Truncated = true
				res.Limit = models.LimitBytes
				break
			}
		}
	}

	// Truncation that left nothing behind is a failure, not an empty
	// success.
	if len(pages) == 0 && res.Truncated {
		res.Err = &models.Error{
			Kind: models.KindResourceLimit,
			Msg:  "every page was dropped by the " + res.Limit + " ceiling",
		}
		res.Truncated = false
		res.Limit = ""
		return res
	}

	res.Images = make([]models.PageImage, len(pages))
	for i, page := range pages {
		res.Images[i] = models.PageImage{SourceName: doc.Name, PageIndex: i, Bytes: page}
	}
	res.Status = models.StatusOK
	return res
}

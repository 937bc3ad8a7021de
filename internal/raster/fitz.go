package raster

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// FitzEngine renders pages in-process through MuPDF.
type FitzEngine struct{}

func NewFitzEngine() *FitzEngine {
	return &FitzEngine{}
}

func (e *FitzEngine) Render(ctx context.Context, pdf []byte, opts RenderOptions) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	limit := doc.NumPage()
	if opts.MaxPages > 0 && opts.MaxPages < limit {
		limit = opts.MaxPages
	}

	pages := make([][]byte, 0, limit)
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(opts.DPI))
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.JPEGQuality)); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

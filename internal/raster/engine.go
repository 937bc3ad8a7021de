// Package raster turns PDF bytes into ordered JPEG page images. The actual
// rendering is delegated to an Engine so deployments can pick between the
// in-process MuPDF renderer and an external pdftoppm binary, and tests can
// substitute a fake.
package raster

import "context"

// RenderOptions carry the per-document rendering settings.
type RenderOptions struct {
	DPI         int
	JPEGQuality int
	// MaxPages stops rendering after this many pages when positive. The
	// document's true page count comes from the preflight, not from the
	// engine.
	MaxPages int
}

// Engine renders one PDF document into JPEG-encoded pages, in page order.
// Engines report failures as plain errors; classification into stable reason
// codes happens above them.
type Engine interface {
	Render(ctx context.Context, pdf []byte, opts RenderOptions) ([][]byte, error)
}

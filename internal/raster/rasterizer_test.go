package raster

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/pdf2jpeg/internal/models"
	"github.com/docpipe/pdf2jpeg/internal/pdftest"
)

// stubEngine returns canned pages and records how it was called.
type stubEngine struct {
	pages [][]byte
	err   error

	mu      sync.Mutex
	calls   int
	gotOpts RenderOptions
}

func (e *stubEngine) Render(ctx context.Context, pdf []byte, opts RenderOptions) ([][]byte, error) {
	e.mu.Lock()
	e.calls++
	e.gotOpts = opts
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.pages, nil
}

// stubPageCount pins the preflight result and returns a restore func.
func stubPageCount(n int) func() {
	orig := pageCount
	pageCount = func(rs io.ReadSeeker, conf *model.Configuration) (int, error) { return n, nil }
	return func() { pageCount = orig }
}

func sourceDoc(name string, data []byte) models.SourceDocument {
	return models.SourceDocument{Name: name, Origin: models.OriginInline, Bytes: data}
}

func TestRasterizeRendersAllPages(t *testing.T) {
	engine := &stubEngine{pages: [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")}}
	r := NewRasterizer(engine, Limits{})

	res := r.Rasterize(context.Background(), sourceDoc("report", pdftest.MakePDF(3)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Images, 3)
	assert.Equal(t, 3, res.TotalPages)
	assert.False(t, res.Truncated)
	for i, img := range res.Images {
		assert.Equal(t, i, img.PageIndex)
		assert.Equal(t, "report", img.SourceName)
	}
	assert.Equal(t, 85, engine.gotOpts.JPEGQuality)
	assert.Equal(t, 150, engine.gotOpts.DPI)
}

func TestRasterizeConcurrentEncryptedDocuments(t *testing.T) {
	doc := sourceDoc("locked", pdftest.MakeEncryptedPDF(2))
	engine := &stubEngine{pages: [][]byte{[]byte("p1"), []byte("p2")}}
	r := NewRasterizer(engine, Limits{})
	quality := models.Quality{JPEG: 85, DPI: 150}

	res := r.Rasterize(context.Background(), doc, quality)
	require.Equal(t, models.StatusOK, res.Status, "fixture must pass preflight on its own: %v", res.Err)
	require.Equal(t, 2, res.TotalPages)

	// Empty-password validation makes the preflight derive keys per
	// document. Parallel calls on one rasterizer may not disturb each
	// other.
	var failed atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if out := r.Rasterize(context.Background(), doc, quality); out.Status != models.StatusOK {
					failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failed.Load(), "concurrent preflights of an encrypted document must all succeed")
}

func TestRasterizeCorruptDocument(t *testing.T) {
	engine := &stubEngine{pages: [][]byte{[]byte("p1")}}
	r := NewRasterizer(engine, Limits{})

	res := r.Rasterize(context.Background(), sourceDoc("broken", pdftest.Corrupt()), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusFailed, res.Status)
	require.NotNil(t, res.Err)
	assert.Equal(t, models.ReasonCorrupt, res.Err.Reason)
	assert.Empty(t, res.Images)
	assert.Equal(t, 0, engine.calls, "a document that fails preflight must not reach the engine")
}

func TestRasterizeZeroPageDocument(t *testing.T) {
	restore := stubPageCount(0)
	defer restore()

	engine := &stubEngine{}
	r := NewRasterizer(engine, Limits{})

	res := r.Rasterize(context.Background(), sourceDoc("empty", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusOK, res.Status)
	assert.Empty(t, res.Images)
	assert.Equal(t, 0, res.TotalPages)
	assert.Equal(t, 0, engine.calls)
}

func TestRasterizePageCeiling(t *testing.T) {
	restore := stubPageCount(5)
	defer restore()

	engine := &stubEngine{pages: [][]byte{[]byte("p1"), []byte("p2")}}
	r := NewRasterizer(engine, Limits{MaxPages: 2})

	res := r.Rasterize(context.Background(), sourceDoc("long", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Images, 2)
	assert.True(t, res.Truncated)
	assert.Equal(t, models.LimitPages, res.Limit)
	assert.Equal(t, 5, res.TotalPages)
	assert.Equal(t, 2, engine.gotOpts.MaxPages)
}

func TestRasterizePageCeilingTrimsOverdelivery(t *testing.T) {
	restore := stubPageCount(5)
	defer restore()

	// An engine that ignores MaxPages still may not leak extra pages.
	engine := &stubEngine{pages: [][]byte{[]byte("p1"), []byte("p2"), []byte("p3"), []byte("p4"), []byte("p5")}}
	r := NewRasterizer(engine, Limits{MaxPages: 2})

	res := r.Rasterize(context.Background(), sourceDoc("long", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Images, 2)
	assert.True(t, res.Truncated)
	assert.Equal(t, models.LimitPages, res.Limit)
}

func TestRasterizeUnderDeliveryLeftUnflagged(t *testing.T) {
	restore := stubPageCount(3)
	defer restore()

	// No ceiling is configured, so a short delivery is not a truncation.
	engine := &stubEngine{pages: [][]byte{[]byte("p1"), []byte("p2")}}
	r := NewRasterizer(engine, Limits{})

	res := r.Rasterize(context.Background(), sourceDoc("short", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Images, 2)
	assert.Equal(t, 3, res.TotalPages)
	assert.False(t, res.Truncated)
	assert.Empty(t, res.Limit)
}

func TestRasterizeEngineDeliveringNothingFails(t *testing.T) {
	restore := stubPageCount(2)
	defer restore()

	engine := &stubEngine{}
	r := NewRasterizer(engine, Limits{})

	res := r.Rasterize(context.Background(), sourceDoc("hollow", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusFailed, res.Status)
	require.NotNil(t, res.Err)
	assert.Equal(t, models.KindConversion, res.Err.Kind)
	assert.Equal(t, models.ReasonOther, res.Err.Reason)
	assert.False(t, res.Truncated)
}

func TestRasterizeByteCeiling(t *testing.T) {
	restore := stubPageCount(3)
	defer restore()

	engine := &stubEngine{pages: [][]byte{make([]byte, 10), make([]byte, 10), make([]byte, 10)}}
	r := NewRasterizer(engine, Limits{MaxImageBytes: 25})

	res := r.Rasterize(context.Background(), sourceDoc("heavy", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusOK, res.Status)
	require.Len(t, res.Images, 2, "whole pages only, up to the byte ceiling")
	assert.True(t, res.Truncated)
	assert.Equal(t, models.LimitBytes, res.Limit)
}

func TestRasterizeByteCeilingDroppingEverythingFails(t *testing.T) {
	restore := stubPageCount(2)
	defer restore()

	engine := &stubEngine{pages: [][]byte{make([]byte, 100), make([]byte, 100)}}
	r := NewRasterizer(engine, Limits{MaxImageBytes: 50})

	res := r.Rasterize(context.Background(), sourceDoc("huge", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusFailed, res.Status)
	require.NotNil(t, res.Err)
	assert.Equal(t, models.KindResourceLimit, res.Err.Kind)
	assert.Empty(t, res.Images)
	assert.False(t, res.Truncated)
}

func TestRasterizeEngineFailureClassified(t *testing.T) {
	restore := stubPageCount(2)
	defer restore()

	engine := &stubEngine{err: errors.New("failed to open document: cannot decrypt")}
	r := NewRasterizer(engine, Limits{})

	res := r.Rasterize(context.Background(), sourceDoc("locked", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusFailed, res.Status)
	require.NotNil(t, res.Err)
	assert.Equal(t, models.ReasonEncrypted, res.Err.Reason)
}

func TestRasterizeEngineTimeoutClassifiedAsOther(t *testing.T) {
	restore := stubPageCount(2)
	defer restore()

	engine := &stubEngine{err: context.DeadlineExceeded}
	r := NewRasterizer(engine, Limits{})

	res := r.Rasterize(context.Background(), sourceDoc("slow", pdftest.MakePDF(1)), models.Quality{JPEG: 85, DPI: 150})

	require.Equal(t, models.StatusFailed, res.Status)
	require.NotNil(t, res.Err)
	assert.Equal(t, models.ReasonOther, res.Err.Reason)
}

package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/docpipe/pdf2jpeg/internal/config"
	"github.com/docpipe/pdf2jpeg/internal/fetch"
	"github.com/docpipe/pdf2jpeg/internal/models"
)

// pdfMagicWindow bounds how far into a payload the %PDF header may sit.
// Uploads from multipart-wrapping clients carry a preamble before the
// document itself; those are salvaged by slicing from the magic bytes.
const pdfMagicWindow = 1024

// maxNameLength caps a sanitized document name so archive entry names stay
// portable.
const maxNameLength = 64

// Resolver turns a raw invocation payload into the ordered set of source
// documents the pipeline works on, plus the batch-wide conversion settings.
type Resolver struct {
	fetcher      fetch.Fetcher
	defaults     models.Quality
	maxDPI       int
	workers      int
	fetchTimeout time.Duration
}

func NewResolver(fetcher fetch.Fetcher, cfg *config.Config) *Resolver {
	return &Resolver{
		fetcher:      fetcher,
		defaults:     models.Quality{JPEG: cfg.DefaultJPEGQuality, DPI: cfg.DefaultDPI},
		maxDPI:       cfg.MaxDPI,
		workers:      cfg.WorkerLimit,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// entry is one document reference lifted out of the payload, before its
// bytes are resolved.
type entry struct {
	name string
	url  string
	body string
	err  *models.Error
}

// Resolve parses payload and resolves every referenced document. The error
// return is non-nil only when the payload as a whole is unusable; individual
// document failures ride on their SourceDocument so siblings keep going.
func (r *Resolver) Resolve(ctx context.Context, payload []byte) ([]models.SourceDocument, models.Quality, error) {
	req, err := parsePayload(payload)
	if err != nil {
		return nil, models.Quality{}, err
	}

	quality, err := r.resolveQuality(req)
	if err != nil {
		return nil, models.Quality{}, err
	}

	entries, err := collectEntries(req)
	if err != nil {
		return nil, models.Quality{}, err
	}
	assignNames(entries)

	docs := make([]models.SourceDocument, len(entries))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i := range entries {
		index, e := i, entries[i]
		eg.Go(func() error {
			// Never fail the group; per-entry failures ride in the slot.
			docs[index] = r.resolveEntry(gctx, index, e)
			return nil
		})
	}
	_ = eg.Wait()

	return docs, quality, nil
}

// parsePayload accepts the three wire forms: a JSON object, the legacy JSON
// array of document entries, and the oldest form of all, a raw base64 body.
func parsePayload(payload []byte) (*models.ConvertRequest, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, models.NewInvalidInput("request body is empty", nil)
	}

	switch trimmed[0] {
	case '{':
		var req models.ConvertRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return nil, models.NewInvalidInput("request body is not valid JSON", err)
		}
		return &req, nil
	case '[':
		var docs []models.DocumentRequest
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, models.NewInvalidInput("request body is not a valid JSON array of documents", err)
		}
		return &models.ConvertRequest{Documents: docs}, nil
	default:
		return &models.ConvertRequest{Body: string(trimmed)}, nil
	}
}

func (r *Resolver) resolveQuality(req *models.ConvertRequest) (models.Quality, error) {
	quality := r.defaults
	if req.Quality != 0 {
		if req.Quality < 1 || req.Quality > 100 {
			return quality, models.NewInvalidInput(fmt.Sprintf("quality must be between 1 and 100, got %d", req.Quality), nil)
		}
		quality.JPEG = req.Quality
	}
	if req.DPI != 0 {
		if req.DPI < 1 || req.DPI > r.maxDPI {
			return quality, models.NewInvalidInput(fmt.Sprintf("dpi must be between 1 and %d, got %d", r.maxDPI, req.DPI), nil)
		}
		quality.DPI = req.DPI
	}
	return quality, nil
}

// collectEntries flattens the request into one entry per document. A request
// must carry exactly one input shape; problems inside a single batch entry
// are recorded on that entry instead of failing the invocation.
func collectEntries(req *models.ConvertRequest) ([]entry, error) {
	shapes := 0
	if req.PDFURL != "" {
		shapes++
	}
	if req.Body != "" {
		shapes++
	}
	if len(req.Documents) > 0 {
		shapes++
	}
	if shapes == 0 {
		return nil, models.NewInvalidInput("request contains no documents", nil)
	}
	if shapes > 1 {
		return nil, models.NewInvalidInput("request mixes input shapes; supply pdf_url, body or documents", nil)
	}

	switch {
	case req.PDFURL != "":
		return []entry{{url: req.PDFURL}}, nil
	case req.Body != "":
		return []entry{{body: req.Body}}, nil
	}

	entries := make([]entry, len(req.Documents))
	for i, d := range req.Documents {
		body := d.Body
		if body == "" {
			body = d.Data
		}
		e := entry{name: d.Name, url: d.PDFURL, body: body}
		switch {
		case e.url != "" && e.body != "":
			e.err = models.NewInvalidInput("document supplies both pdf_url and body", nil)
		case e.url == "" && e.body == "":
			e.err = models.NewInvalidInput("document supplies neither pdf_url nor body", nil)
		}
		entries[i] = e
	}
	return entries, nil
}

// assignNames gives every entry a unique archive-safe name. Unnamed entries
// get doc_<position>; collisions get a numeric suffix, first writer wins.
func assignNames(entries []entry) {
	used := make(map[string]bool, len(entries))
	for i := range entries {
		name := sanitizeName(entries[i].name)
		if name == "" {
			name = fmt.Sprintf("doc_%d", i+1)
		}
		if used[name] {
			base := name
			for n := 2; used[name]; n++ {
				name = fmt.Sprintf("%s-%d", base, n)
			}
		}
		used[name] = true
		entries[i].name = name
	}
}

// sanitizeName reduces a caller-supplied name to [A-Za-z0-9._-] so it cannot
// escape or collide inside the archive.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	s := strings.Trim(b.String(), ".-")
	if len(s) > maxNameLength {
		s = s[:maxNameLength]
	}
	return s
}

func (r *Resolver) resolveEntry(ctx context.Context, index int, e entry) models.SourceDocument {
	doc := models.SourceDocument{Name: e.name, Index: index, Origin: models.OriginInline}
	if e.url != "" {
		doc.Origin = models.OriginURL
	}
	if e.err != nil {
		doc.Err = e.err
		return doc
	}

	var data []byte
	if e.url != "" {
		fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
		fetched, err := r.fetcher.Fetch(fetchCtx, e.url)
		if err != nil {
			doc.Err = models.AsError(err)
			return doc
		}
		data = fetched
	} else {
		decoded, err := decodeBody(e.body)
		if err != nil {
			doc.Err = models.NewInvalidInput("document body is not valid base64", err)
			return doc
		}
		data = decoded
	}

	pdf, ok := extractPDF(data)
	if !ok {
		doc.Err = models.NewInvalidInput("document bytes do not contain a PDF header", nil)
		return doc
	}
	doc.Bytes = pdf
	return doc
}

// decodeBody tolerates the sloppy base64 real callers send: embedded
// whitespace and missing padding.
func decodeBody(body string) ([]byte, error) {
	body = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, body)

	data, err := base64.StdEncoding.DecodeString(body)
	if err == nil {
		return data, nil
	}
	if data, rawErr := base64.RawStdEncoding.DecodeString(body); rawErr == nil {
		return data, nil
	}
	return nil, err
}

// extractPDF locates the %PDF magic within the leading window and slices the
// document from there.
func extractPDF(data []byte) ([]byte, bool) {
	window := data
	if len(window) > pdfMagicWindow {
		window = window[:pdfMagicWindow]
	}
	idx := bytes.Index(window, []byte("%PDF"))
	if idx < 0 {
		return nil, false
	}
	return data[idx:], true
}

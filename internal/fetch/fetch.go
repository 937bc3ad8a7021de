// Package fetch retrieves URL-sourced PDF documents. Each supported scheme
// is served by its own transport behind a common contract: bounded time,
// bounded size, classified failures.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/docpipe/pdf2jpeg/internal/models"
)

// Fetcher downloads the document behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options configure the transports behind the Mux.
type Options struct {
	HTTPTimeout time.Duration
	MaxBytes    int64
	S3Endpoint  string
	S3Region    string
}

// Mux routes a URL to the transport registered for its scheme.
type Mux struct {
	transports map[string]Fetcher
}

// NewMux builds the default transport set: http/https, gs and s3.
func NewMux(opts Options) *Mux {
	httpFetcher := NewHTTP(opts.HTTPTimeout, opts.MaxBytes)
	return &Mux{
		transports: map[string]Fetcher{
			"http":  httpFetcher,
			"https": httpFetcher,
			"gs":    NewGCS(opts.MaxBytes),
			"s3":    NewS3(opts.S3Endpoint, opts.S3Region, opts.MaxBytes),
		},
	}
}

func (m *Mux) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, models.NewInvalidInput(fmt.Sprintf("malformed document URL %q", rawURL), err)
	}
	transport, ok := m.transports[u.Scheme]
	if !ok {
		return nil, models.NewInvalidInput(fmt.Sprintf("unsupported URL scheme %q", u.Scheme), nil)
	}
	return transport.Fetch(ctx, rawURL)
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docpipe/pdf2jpeg/internal/models"
)

// HTTPFetcher downloads documents over plain HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTP builds an HTTP fetcher with a hard request timeout and a response
// size ceiling.
func NewHTTP(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, models.NewInvalidInput(fmt.Sprintf("malformed document URL %q", rawURL), err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, models.NewFetchError(fmt.Sprintf("failed to fetch %s", rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewFetchError(fmt.Sprintf("fetching %s returned status %d", rawURL, resp.StatusCode), nil)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, models.NewFetchError(fmt.Sprintf("document at %s exceeds the %d byte fetch limit", rawURL, f.maxBytes), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, models.NewFetchError(fmt.Sprintf("failed to read response body from %s", rawURL), err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, models.NewFetchError(fmt.Sprintf("document at %s exceeds the %d byte fetch limit", rawURL, f.maxBytes), nil)
	}
	return data, nil
}

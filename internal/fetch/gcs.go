package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/docpipe/pdf2jpeg/internal/models"
)

// GCSFetcher reads documents from Cloud Storage via gs://bucket/object URLs.
// The client is created on first use so deployments that never receive gs://
// inputs need no GCP credentials.
type GCSFetcher struct {
	maxBytes int64

	once    sync.Once
	client  *storage.Client
	initErr error
}

func NewGCS(maxBytes int64) *GCSFetcher {
	return &GCSFetcher{maxBytes: maxBytes}
}

func (f *GCSFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, object, err := splitObjectURL(rawURL)
	if err != nil {
		return nil, err
	}

	f.once.Do(func() {
		f.client, f.initErr = storage.NewClient(context.Background())
	})
	if f.initErr != nil {
		return nil, models.NewFetchError("failed to create Storage client", f.initErr)
	}

	reader, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, classifyGCSError(rawURL, err)
	}
	defer reader.Close()

	if reader.Attrs.Size > f.maxBytes {
		return nil, models.NewFetchError(fmt.Sprintf("document at %s exceeds the %d byte fetch limit", rawURL, f.maxBytes), nil)
	}
	data, err := io.ReadAll(io.LimitReader(reader, f.maxBytes+1))
	if err != nil {
		return nil, models.NewFetchError(fmt.Sprintf("failed to read GCS object %s", rawURL), err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, models.NewFetchError(fmt.Sprintf("document at %s exceeds the %d byte fetch limit", rawURL, f.maxBytes), nil)
	}
	return data, nil
}

func classifyGCSError(rawURL string, err error) *models.Error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return models.NewFetchError(fmt.Sprintf("object %s does not exist", rawURL), err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return models.NewFetchError(fmt.Sprintf("reading %s returned status %d", rawURL, gerr.Code), err)
	}
	return models.NewFetchError(fmt.Sprintf("failed to open GCS object %s", rawURL), err)
}

// splitObjectURL breaks a gs:// or s3:// URL into bucket and object key.
func splitObjectURL(rawURL string) (bucket, object string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", models.NewInvalidInput(fmt.Sprintf("malformed document URL %q", rawURL), err)
	}
	bucket = u.Host
	object = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return "", "", models.NewInvalidInput(fmt.Sprintf("URL %q must name a bucket and an object", rawURL), nil)
	}
	return bucket, object, nil
}

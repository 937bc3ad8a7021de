package fetch

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docpipe/pdf2jpeg/internal/models"
)

// S3Fetcher reads documents from S3-compatible storage via s3://bucket/key
// URLs. Credentials come from the standard AWS environment variables; like
// the GCS transport, the client is created on first use.
type S3Fetcher struct {
	endpoint string
	region   string
	maxBytes int64

	once    sync.Once
	client  *minio.Client
	initErr error
}

func NewS3(endpoint, region string, maxBytes int64) *S3Fetcher {
	return &S3Fetcher{endpoint: endpoint, region: region, maxBytes: maxBytes}
}

func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := splitObjectURL(rawURL)
	if err != nil {
		return nil, err
	}

	f.once.Do(func() {
		f.client, f.initErr = minio.New(f.endpoint, &minio.Options{
			Creds:  credentials.NewEnvAWS(),
			Secure: true,
			Region: f.region,
		})
	})
	if f.initErr != nil {
		return nil, models.NewFetchError("failed to create S3 client", f.initErr)
	}

	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyS3Error(rawURL, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, classifyS3Error(rawURL, err)
	}
	if info.Size > f.maxBytes {
		return nil, models.NewFetchError(fmt.Sprintf("document at %s exceeds the %d byte fetch limit", rawURL, f.maxBytes), nil)
	}

	data, err := io.ReadAll(io.LimitReader(obj, f.maxBytes+1))
	if err != nil {
		return nil, classifyS3Error(rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, models.NewFetchError(fmt.Sprintf("document at %s exceeds the %d byte fetch limit", rawURL, f.maxBytes), nil)
	}
	return data, nil
}

func classifyS3Error(rawURL string, err error) *models.Error {
	if resp := minio.ToErrorResponse(err); resp.Code != "" {
		return models.NewFetchError(fmt.Sprintf("reading %s failed with %s", rawURL, resp.Code), err)
	}
	return models.NewFetchError(fmt.Sprintf("failed to read S3 object %s", rawURL), err)
}

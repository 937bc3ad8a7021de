package services

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/docpipe/pdf2jpeg/internal/models"
)

// BuildArchive packs every delivered page image into one ZIP, documents in
// input order and pages in page order within each document. JPEG data is
// stored uncompressed and headers carry no timestamps, so identical inputs
// produce byte-identical archives. Returns nil when there is nothing to
// pack.
func BuildArchive(results []models.DocumentResult, multi bool) ([]byte, error) {
	total := 0
	for _, res := range results {
		total += len(res.Images)
	}
	if total == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, res := range results {
		for _, img := range res.Images {
			header := &zip.FileHeader{
				Name:   entryName(res.Name, img.PageIndex, multi),
				Method: zip.Store,
			}
			w, err := zw.CreateHeader(header)
			if err != nil {
				return nil, fmt.Errorf("failed to create archive entry %s: %w", header.Name, err)
			}
			if _, err := w.Write(img.Bytes); err != nil {
				return nil, fmt.Errorf("failed to write archive entry %s: %w", header.Name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// entryName is a pure function of the document name, page index and batch
// arity. Page numbers are 1-based and zero-padded so entries list in page
// order; single-document archives drop the name prefix.
func entryName(doc string, pageIndex int, multi bool) string {
	if multi {
		return fmt.Sprintf("%s_page_%05d.jpg", doc, pageIndex+1)
	}
	return fmt.Sprintf("page_%05d.jpg", pageIndex+1)
}

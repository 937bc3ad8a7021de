package models

// Origin identifies where a source document's bytes came from.
type Origin string

const (
	OriginInline Origin = "inline"
	OriginURL    Origin = "url"
)

// Status is the terminal state of one processed document.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Names for the resource ceiling a truncated document ran into.
const (
	LimitPages = "pages"
	LimitBytes = "bytes"
)

// SourceDocument is one input document after resolution: a unique logical
// name, its position in the request, and either the raw PDF bytes or the
// resolution failure. Exactly one of Bytes and Err is set.
type SourceDocument struct {
	Name   string
	Index  int
	Origin Origin
	Bytes  []byte
	Err    *Error
}

// Quality holds the batch-wide conversion settings.
type Quality struct {
	JPEG int
	DPI  int
}

// PageImage is one rendered page. PageIndex is zero-based and contiguous
// within a document.
type PageImage struct {
	SourceName string
	PageIndex  int
	Bytes      []byte
}

// DocumentResult is the outcome for one source document. A failed result
// carries Err and no images; a truncated one carries the images that fit and
// names the ceiling it hit.
type DocumentResult struct {
	Name       string
	Status     Status
	Images     []PageImage
	TotalPages int
	Truncated  bool
	Limit      string
	Err        *Error
}

// BatchResult aggregates one invocation: per-document outcomes in input
// order plus the assembled ZIP archive, nil when no document yielded images.
type BatchResult struct {
	Results []DocumentResult
	Archive []byte
}

// HasContent reports whether at least one document produced an image.
func (b *BatchResult) HasContent() bool {
	return len(b.Archive) > 0
}

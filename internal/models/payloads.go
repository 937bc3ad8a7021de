package models

// These structs define the JSON payloads exchanged with the converter
// function over its HTTP trigger.

// DocumentRequest is one entry of a batch request. Exactly one of PDFURL and
// Body/Data must be set. Data is the field name used by the service's first
// generation of callers and is kept as an alias for Body.
type DocumentRequest struct {
	Name   string `json:"name,omitempty"`
	PDFURL string `json:"pdf_url,omitempty"`
	Body   string `json:"body,omitempty"`
	Data   string `json:"data,omitempty"`
}

// ConvertRequest is the invocation payload. It carries exactly one input
// shape: a single URL, a single inline document, or a batch. Quality and DPI
// are optional and apply to every document in the request.
type ConvertRequest struct {
	PDFURL    string            `json:"pdf_url,omitempty"`
	Body      string            `json:"body,omitempty"`
	Documents []DocumentRequest `json:"documents,omitempty"`
	Quality   int               `json:"quality,omitempty"`
	DPI       int               `json:"dpi,omitempty"`
}

// DocumentStatus is the per-document entry of the response envelope.
// PageCount is the number of page images delivered in the archive, which is
// lower than the document's page count when the result was truncated.
type DocumentStatus struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	PageCount int    `json:"pageCount"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ConvertResponse is the invocation envelope. Body holds the base64-encoded
// ZIP archive and is omitted when no document produced an image.
type ConvertResponse struct {
	StatusCode      int              `json:"statusCode"`
	IsBase64Encoded bool             `json:"isBase64Encoded"`
	Body            string           `json:"body,omitempty"`
	Results         []DocumentStatus `json:"results,omitempty"`
	Error           string           `json:"error,omitempty"`
}

package models

import "errors"

// Kind classifies a pipeline failure. Kinds are stable, machine-readable
// strings surfaced to callers in the per-document status list.
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindFetch         Kind = "fetch_error"
	KindConversion    Kind = "conversion_error"
	KindResourceLimit Kind = "resource_limit_exceeded"
	KindNotProcessed  Kind = "not_processed"
	KindInternal      Kind = "internal_error"
)

// Reason codes attached to conversion errors. Callers see these instead of
// raw engine output.
const (
	ReasonCorrupt     = "corrupt"
	ReasonEncrypted   = "encrypted"
	ReasonUnsupported = "unsupported"
	ReasonOther       = "other"
)

// Error is the structured failure carried through the pipeline. Per-document
// errors are recorded on that document's result and never abort siblings.
type Error struct {
	Kind   Kind
	Reason string // set for conversion errors only
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Reason != "" {
		s += "/" + e.Reason
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the machine-readable code reported to callers: the conversion
// reason when there is one, the kind otherwise.
func (e *Error) Code() string {
	if e.Kind == KindConversion && e.Reason != "" {
		return e.Reason
	}
	return string(e.Kind)
}

func NewInvalidInput(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg, Err: err}
}

func NewFetchError(msg string, err error) *Error {
	return &Error{Kind: KindFetch, Msg: msg, Err: err}
}

func NewConversionError(reason, msg string, err error) *Error {
	return &Error{Kind: KindConversion, Reason: reason, Msg: msg, Err: err}
}

func NewNotProcessed(msg string) *Error {
	return &Error{Kind: KindNotProcessed, Msg: msg}
}

func NewInternal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf extracts the failure kind from err, treating anything untyped as an
// internal fault.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError coerces err into a structured *Error, wrapping untyped failures as
// internal ones so no raw error text leaks into a response.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternal("unexpected failure", err)
}

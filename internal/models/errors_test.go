package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "conversion error reports its reason",
			err:  NewConversionError(ReasonEncrypted, "locked", nil),
			want: "encrypted",
		},
		{
			name: "conversion error without reason falls back to kind",
			err:  &Error{Kind: KindConversion},
			want: "conversion_error",
		},
		{
			name: "fetch error reports its kind",
			err:  NewFetchError("boom", nil),
			want: "fetch_error",
		},
		{
			name: "not processed reports its kind",
			err:  NewNotProcessed("deadline"),
			want: "not_processed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Code())
		})
	}
}

func TestErrorMessageComposition(t *testing.T) {
	err := NewConversionError(ReasonCorrupt, "document could not be parsed", errors.New("bad xref"))
	assert.Equal(t, "conversion_error/corrupt: document could not be parsed: bad xref", err.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewFetchError("failed to fetch", cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("resolving entry 2: %w", NewInvalidInput("bad base64", nil))
	assert.Equal(t, KindInvalidInput, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestAsError(t *testing.T) {
	typed := NewFetchError("gone", nil)
	assert.Same(t, typed, AsError(typed))

	coerced := AsError(errors.New("plain"))
	require.NotNil(t, coerced)
	assert.Equal(t, KindInternal, coerced.Kind)
}

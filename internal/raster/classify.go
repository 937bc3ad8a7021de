package raster

import (
	"context"
	"errors"
	"strings"

	"github.com/docpipe/pdf2jpeg/internal/models"
)

// ClassifyConversion maps a preflight or engine failure onto the stable
// reason codes surfaced to callers. The engines report wildly different
// error text for the same underlying condition, so this matches on content.
func ClassifyConversion(err error) *models.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewConversionError(models.ReasonOther, "conversion timed out", err)
	}

	lower := strings.ToLower(err.Error())
	switch {
	case containsAny(lower, "password", "encrypt", "decrypt", "authentication"):
		return models.NewConversionError(models.ReasonEncrypted, "document is password protected", err)
	case containsAny(lower, "unsupported", "unknown filter", "not yet implemented", "unexpected version"):
		return models.NewConversionError(models.ReasonUnsupported, "document uses an unsupported PDF feature", err)
	default:
		return models.NewConversionError(models.ReasonCorrupt, "document could not be parsed", err)
	}
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/docpipe/pdf2jpeg/internal/models"
	"github.com/docpipe/pdf2jpeg/internal/services"
)

var (
	converterInstance *services.ConverterFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	// "HandleConvertPDF" is the entry point name configured in GCP.
	functions.HTTP("HandleConvertPDF", handleConvertPDF)
}

// main is required by the Go Functions Framework.
func main() {}

// handleConvertPDF is the HTTP handler. The body is passed through as raw
// bytes because the payload comes in three wire forms, not all of them JSON.
func handleConvertPDF(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of the pipeline.
	once.Do(func() {
		converterInstance, initErr = services.NewConverter()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		writeEnvelope(w, services.ErrorEnvelope(initErr))
		return
	}

	payload, err := readPayload(w, r, converterInstance.MaxRequestBytes())
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		writeEnvelope(w, services.ErrorEnvelope(err))
		return
	}

	resp, err := converterInstance.Process(r.Context(), payload)
	if err != nil {
		// The specific error is already logged inside the Process method.
		resp = services.ErrorEnvelope(err)
	}
	writeEnvelope(w, resp)
}

// readPayload drains the body under the configured ceiling. MaxBytesReader
// closes the body and marks the connection when the limit trips.
func readPayload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, models.NewInvalidInput(fmt.Sprintf("request body exceeds the %d byte limit", tooLarge.Limit), err)
		}
		return nil, models.NewInvalidInput("failed to read request body", err)
	}
	return payload, nil
}

// writeEnvelope mirrors the envelope's status code onto the HTTP response so
// both envelope-aware and plain HTTP callers see the same outcome.
func writeEnvelope(w http.ResponseWriter, resp *models.ConvertResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

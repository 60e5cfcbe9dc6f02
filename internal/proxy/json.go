package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONError writes an Anthropic error envelope with the HTTP status
// implied by its error type.
func writeJSONError(ctx context.Context, w http.ResponseWriter, errResp *types.ErrorResponse) {
	var status int
	switch errResp.Err.Type {
	case types.ErrorTypeInvalidRequest:
		status = http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		status = http.StatusUnauthorized
	case types.ErrorTypePermission:
		status = http.StatusForbidden
	case types.ErrorTypeNotFound:
		status = http.StatusNotFound
	case types.ErrorTypeRateLimit:
		status = http.StatusTooManyRequests
	case types.ErrorTypeOverloaded:
		status = 529
	case types.ErrorTypeAPI:
		status = http.StatusInternalServerError
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(ctx, w, errResp, status)
}

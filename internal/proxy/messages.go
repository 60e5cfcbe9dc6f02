package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter"
	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/openaichat"
	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

// validate checks structural requirements the JSON decoder cannot express
// (required fields, role values, positive token budgets).
var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateMessageHandler handles Anthropic Messages requests.
type CreateMessageHandler struct {
	Adapter   *openaichat.CreateMessageAdapter
	Transport http.RoundTripper
}

// Compile-time check to ensure CreateMessageHandler implements http.Handler
var _ http.Handler = (*CreateMessageHandler)(nil)

// ServeHTTP implements http.Handler interface for streaming or non-streaming requests.
func (h *CreateMessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req anthropicadapter.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.WarnContext(ctx, "request exceeds size limit", "limit_bytes", maxBytesErr.Limit)
			writeJSONError(ctx, w, types.NewErrorResponse(
				types.ErrorTypeInvalidRequest,
				http.StatusText(http.StatusRequestEntityTooLarge),
			))
			return
		}
		slog.ErrorContext(ctx, "failed to decode request", "error", err)
		writeJSONError(ctx, w, types.NewErrorResponse(
			types.ErrorTypeInvalidRequest,
			http.StatusText(http.StatusBadRequest),
		))
		return
	}

	if err := validate.Struct(req); err != nil {
		slog.WarnContext(ctx, "request failed validation", "error", err)
		writeJSONError(ctx, w, types.NewErrorResponse(
			types.ErrorTypeInvalidRequest, err.Error(),
		))
		return
	}

	if req.Stream {
		h.streamResponse(ctx, w, req)
	} else {
		h.writeResponse(ctx, w, req)
	}
}

// writeResponse handles non-streaming Messages requests.
func (h *CreateMessageHandler) writeResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req anthropicadapter.CreateMessageRequest,
) {
	if ctx.Err() != nil {
		return
	}
	response, err := h.Adapter.ProcessRequest(ctx, req, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "request failed", "error", err)

		var errResp *types.ErrorResponse
		if errors.As(err, &errResp) {
			writeJSONError(ctx, w, errResp)
			return
		}

		writeJSONError(ctx, w, types.NewErrorResponse(
			types.ErrorTypeAPI,
			http.StatusText(http.StatusInternalServerError),
		))
		return
	}

	writeJSON(ctx, w, response, http.StatusOK)
}

// streamResponse streams translated Messages events using SSE. The SSE
// response only begins once the adapter has an established upstream stream;
// earlier failures fall back to a plain JSON error body.
func (h *CreateMessageHandler) streamResponse(
	ctx context.Context,
	w http.ResponseWriter,
	req anthropicadapter.CreateMessageRequest,
) {
	if ctx.Err() != nil {
		return
	}
	stream, err := h.Adapter.ProcessStreamingRequest(ctx, req, h.Transport)
	if err != nil {
		slog.ErrorContext(ctx, "streaming request failed", "error", err)

		var errResp *types.ErrorResponse
		if errors.As(err, &errResp) {
			writeJSONError(ctx, w, errResp)
			return
		}

		writeJSONError(ctx, w, types.NewErrorResponse(
			types.ErrorTypeAPI,
			http.StatusText(http.StatusInternalServerError),
		))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		slog.ErrorContext(ctx, "SSE not supported", "error", err)
		writeJSONError(ctx, w, types.NewErrorResponse(
			types.ErrorTypeAPI,
			http.StatusText(http.StatusInternalServerError),
		))
		return
	}

	for event, err := range stream {
		// Check for client disconnect before processing the event.
		if ctx.Err() != nil {
			slog.DebugContext(ctx, "client disconnected during stream")
			return
		}

		if err != nil {
			slog.ErrorContext(ctx, "stream error", "error", err)

			var errResp *types.ErrorResponse
			if !errors.As(err, &errResp) {
				// Fallback: wrap unexpected errors for client visibility.
				errResp = types.NewErrorResponse(types.ErrorTypeAPI, err.Error())
			}
			// A mid-stream failure terminates without message_stop; clients
			// recognize the error event and stop reading.
			if writeErr := sse.WriteNamedEvent(types.EventTypeError, errResp); writeErr != nil {
				slog.ErrorContext(ctx, "failed to write error event", "error", writeErr)
			}
			return
		}

		if writeErr := sse.WriteNamedEvent(event.EventType(), event); writeErr != nil {
			slog.ErrorContext(ctx, "failed to write event", "error", writeErr)
			return
		}
	}
}

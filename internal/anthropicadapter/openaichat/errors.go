package openaichat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

// maxErrorBodyBytes bounds how much of an upstream error body is read.
const maxErrorBodyBytes = 64 << 10

// toErrorType maps an upstream HTTP status to the Anthropic error taxonomy.
func toErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return types.ErrorTypeInvalidRequest
	case http.StatusUnauthorized:
		return types.ErrorTypeAuthentication
	case http.StatusForbidden:
		return types.ErrorTypePermission
	case http.StatusNotFound:
		return types.ErrorTypeNotFound
	case http.StatusTooManyRequests:
		return types.ErrorTypeRateLimit
	case 529:
		return types.ErrorTypeOverloaded
	default:
		// All remaining statuses, 5xx included, are generic upstream failures.
		return types.ErrorTypeAPI
	}
}

// fromUpstreamResponse converts a non-2xx upstream response into an
// Anthropic error envelope. The upstream's own error message is preserved
// when its body decodes; otherwise the raw body is carried, truncated.
func fromUpstreamResponse(res *http.Response) *types.ErrorResponse {
	body, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
	if err != nil {
		body = nil
	}

	message := fmt.Sprintf("upstream returned %d", res.StatusCode)
	var upstreamErr errorBody
	if json.Unmarshal(body, &upstreamErr) == nil && upstreamErr.Error.Message != "" {
		message = upstreamErr.Error.Message
	} else if len(body) > 0 {
		message = fmt.Sprintf("upstream returned %d: %s", res.StatusCode, body)
	}

	return types.NewErrorResponse(toErrorType(res.StatusCode), message)
}

// fromTransportError wraps network-level failures (connect errors, resets,
// timeouts) as generic upstream errors.
func fromTransportError(err error) *types.ErrorResponse {
	return types.NewErrorResponse(types.ErrorTypeAPI,
		fmt.Sprintf("upstream request failed: %v", err))
}

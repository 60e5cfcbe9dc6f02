package types

// Anthropic error taxonomy, as carried in error envelopes.
const (
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeAuthentication = "authentication_error"
	ErrorTypePermission     = "permission_error"
	ErrorTypeNotFound       = "not_found_error"
	ErrorTypeRateLimit      = "rate_limit_error"
	ErrorTypeAPI            = "api_error"
	ErrorTypeOverloaded     = "overloaded_error"
)

// Error is the inner error detail of an Anthropic error envelope.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Error implements the error interface for Error, returning the error message.
func (e *Error) Error() string {
	return e.Message
}

// ErrorResponse is the Anthropic error envelope: {"type":"error","error":{...}}.
// It is returned as a JSON body on non-streaming failures and as the payload
// of an "error" SSE event on mid-stream failures.
type ErrorResponse struct {
	Type string `json:"type"`
	Err  Error  `json:"error"`
}

// Error implements the error interface for ErrorResponse, returning the
// underlying error message. This allows ErrorResponse to travel through
// normal error returns and be recovered with errors.As at the HTTP boundary.
func (e *ErrorResponse) Error() string {
	return e.Err.Message
}

// EventType makes ErrorResponse usable as an SSE stream event.
func (e *ErrorResponse) EventType() string { return EventTypeError }

// NewErrorResponse builds an error envelope of the given kind.
func NewErrorResponse(errorType, message string) *ErrorResponse {
	return &ErrorResponse{
		Type: "error",
		Err:  Error{Type: errorType, Message: message},
	}
}

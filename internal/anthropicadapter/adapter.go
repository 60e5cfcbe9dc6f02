package anthropicadapter

import (
	"context"
	"iter"
	"net/http"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

// Adapter defines the contract for transforming client requests to provider API calls.
//
// Type parameters allow the interface to express transformation contracts for different
// request/response shapes while maintaining compile-time type safety.
//
// Type parameters:
//   - TRequest:  Client-specific request structure
//   - TResponse: Client-specific response structure
//   - TEvent:    Client-specific streaming event protocol
type Adapter[TRequest, TResponse, TEvent any] interface {
	// ProcessRequest transforms the client request, calls the provider API, and returns
	// the transformed response. Implementations should remain stateless.
	ProcessRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (*TResponse, error)

	// ProcessStreamingRequest transforms the client request, calls the provider streaming API,
	// and returns an iterator of transformed events. A non-nil error means the upstream
	// connection was never established; from then on failures surface through the iterator.
	ProcessStreamingRequest(ctx context.Context, clientReq TRequest, transport http.RoundTripper) (iter.Seq2[TEvent, error], error)
}

// Type aliases for the Anthropic Messages operation.
// CreateMessageAdapter is the concrete adapter interface for this operation.
type (
	CreateMessageRequest  = types.MessagesRequest
	CreateMessageResponse = types.MessagesResponse
	CreateMessageEvent    = types.StreamEvent

	CreateMessageAdapter = Adapter[
		CreateMessageRequest,
		CreateMessageResponse,
		CreateMessageEvent,
	]
)

// Type aliases for Anthropic error envelopes.
type (
	Error         = types.Error
	ErrorResponse = types.ErrorResponse
)

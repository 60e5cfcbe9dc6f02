package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter"
	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

// Config carries the translation knobs of the adapter.
type Config struct {
	// ReasoningModel replaces the request model when extended thinking is enabled.
	ReasoningModel string
	// CompletionModel replaces the request model otherwise.
	CompletionModel string
	// IdleTimeout bounds the gap between upstream reads on streaming
	// requests. Zero means the 10 minute default.
	IdleTimeout time.Duration
}

// CreateMessageAdapter translates Anthropic Messages requests into Chat
// Completions calls against an OpenAI-compatible upstream. Instances are
// stateless and safe for concurrent use; per-stream state lives inside the
// returned iterator.
type CreateMessageAdapter struct {
	baseURL string
	cfg     Config
}

// Compile-time check that the adapter satisfies the Messages adapter contract.
var _ anthropicadapter.CreateMessageAdapter = (*CreateMessageAdapter)(nil)

// New creates an adapter for the upstream rooted at baseURL. The base URL
// must not already contain the /v1 path segment.
func New(baseURL string, cfg Config) (*CreateMessageAdapter, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("upstream base URL cannot be empty")
	}

	return &CreateMessageAdapter{baseURL: baseURL, cfg: cfg}, nil
}

// endpoint returns the fully-qualified Chat Completions URL.
func (a *CreateMessageAdapter) endpoint() string {
	return a.baseURL + "/v1/chat/completions"
}

// idleTimeout returns the configured idle-read timeout or its default.
func (a *CreateMessageAdapter) idleTimeout() time.Duration {
	if a.cfg.IdleTimeout > 0 {
		return a.cfg.IdleTimeout
	}
	return defaultIdleTimeout
}

// newHTTPClient creates the upstream HTTP client around the provided transport.
// The transport chain handles authentication.
func newHTTPClient(transport http.RoundTripper) (*http.Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}

	return &http.Client{
		Transport: transport,
		// Client.Timeout = 0 allows long-running SSE streams; streaming reads
		// are bounded by the adapter's idle timeout instead.
	}, nil
}

// newUpstreamRequest builds the outbound Chat Completions request.
func (a *CreateMessageAdapter) newUpstreamRequest(ctx context.Context, chatReq *chatRequest) (*http.Request, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if chatReq.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	return req, nil
}

// ProcessRequest translates the client request, performs the buffered
// upstream call, and translates the response back.
func (a *CreateMessageAdapter) ProcessRequest(
	ctx context.Context,
	clientReq types.MessagesRequest,
	transport http.RoundTripper,
) (*types.MessagesResponse, error) {
	chatReq, model, err := fromMessagesRequest(ctx, clientReq, a.cfg, false)
	if err != nil {
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, err.Error())
	}

	client, err := newHTTPClient(transport)
	if err != nil {
		return nil, err
	}

	req, err := a.newUpstreamRequest(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fromTransportError(err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, fromUpstreamResponse(res)
	}

	var chatRes chatResponse
	if err := json.NewDecoder(res.Body).Decode(&chatRes); err != nil {
		return nil, types.NewErrorResponse(types.ErrorTypeAPI,
			fmt.Sprintf("decode upstream response: %v", err))
	}

	return toMessagesResponse(&chatRes, model)
}

// ProcessStreamingRequest translates the client request, establishes the
// upstream SSE stream, and returns the translated Messages event sequence.
// A non-nil error means the upstream was never reached (or rejected the
// request), so callers can still fail with a plain JSON error body.
func (a *CreateMessageAdapter) ProcessStreamingRequest(
	ctx context.Context,
	clientReq types.MessagesRequest,
	transport http.RoundTripper,
) (iter.Seq2[types.StreamEvent, error], error) {
	chatReq, model, err := fromMessagesRequest(ctx, clientReq, a.cfg, true)
	if err != nil {
		return nil, types.NewErrorResponse(types.ErrorTypeInvalidRequest, err.Error())
	}

	client, err := newHTTPClient(transport)
	if err != nil {
		return nil, err
	}

	req, err := a.newUpstreamRequest(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fromTransportError(err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		defer func() { _ = res.Body.Close() }()
		return nil, fromUpstreamResponse(res)
	}

	return a.streamEvents(ctx, res, newStreamState(model)), nil
}

package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/openaichat"
	"github.com/m0n0x41d/anthropic-proxy/internal/observability/middleware"
)

// maxRequestBodyBytes bounds inbound request bodies. Generous because
// base64 images travel inline in message content.
const maxRequestBodyBytes = 10 << 20

// ReadinessChecker reports whether the application is ready to serve traffic.
type ReadinessChecker interface {
	IsReady() bool
}

// Proxy is the HTTP surface of the translator: routing, middleware, and
// server lifecycle around the Messages handler.
type Proxy struct {
	handler   http.Handler
	transport http.RoundTripper
	server    *http.Server
}

// Compile-time check to ensure Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

// Option customizes a Proxy.
type Option func(*Proxy)

// WithTransport replaces the upstream transport. The transport chain is
// expected to handle authentication; it is shared by all requests and must
// be safe for concurrent use.
func WithTransport(transport http.RoundTripper) Option {
	return func(p *Proxy) {
		p.transport = transport
	}
}

// New creates a Proxy serving the Messages endpoint through the given
// adapter and a readiness-aware health endpoint.
func New(adapter *openaichat.CreateMessageAdapter, checker ReadinessChecker, opts ...Option) (*Proxy, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter cannot be nil")
	}
	if checker == nil {
		return nil, fmt.Errorf("readiness checker cannot be nil")
	}

	p := &Proxy{
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(p)
	}

	messages := &CreateMessageHandler{
		Adapter:   adapter,
		Transport: p.transport,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/messages", messages)
	mux.Handle("GET /health", healthHandler(checker))

	p.handler = applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.Logging(slog.Default()),
		middleware.RequestIDPropagation,
		Recovery,
		CORS,
		RequestSizeLimit(maxRequestBodyBytes),
	)

	return p, nil
}

// ServeHTTP implements http.Handler, dispatching through the middleware stack.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start binds the listener and serves in the background. The returned
// channel receives the terminal serve error, if any.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.server = &http.Server{
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout stays 0: streaming responses are open-ended and
		// bounded by the adapter's idle timeout instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := p.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	slog.InfoContext(ctx, "proxy listening", "addr", listener.Addr().String())
	return errCh, nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// until ctx expires.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	return p.server.Shutdown(ctx)
}

package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/openaichat"
)

const benchStreamingBody = "data: {\"id\":\"c1\",\"model\":\"gpt-fast\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"The\"}}]}\n\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\" quick\"}}]}\n\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\" brown\"}}]}\n\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\" fox\"}}]}\n\n" +
	"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}],\"usage\":{\"prompt_tokens\":9,\"completion_tokens\":4,\"total_tokens\":13}}\n\n" +
	"data: [DONE]\n\n"

const benchBufferedBody = `{"id":"chatcmpl-1","model":"gpt-fast","choices":[
	{"index":0,"message":{"role":"assistant","content":"The quick brown fox"},"finish_reason":"stop"}
],"usage":{"prompt_tokens":9,"completion_tokens":4,"total_tokens":13}}`

const benchRequestBody = `{"model":"m","max_tokens":128,"messages":[{"role":"user","content":"finish the sentence"}]}`

const benchStreamingRequestBody = `{"model":"m","max_tokens":128,"stream":true,"messages":[{"role":"user","content":"finish the sentence"}]}`

// setupBenchProxy creates a Proxy with the full middleware stack but mocked upstream.
// Suppresses logging to isolate benchmark measurements from I/O overhead.
func setupBenchProxy(b *testing.B, transport http.RoundTripper) *Proxy {
	b.Helper()

	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	adapter, err := openaichat.New("http://upstream.test", openaichat.Config{})
	if err != nil {
		b.Fatalf("Failed to create adapter: %v", err)
	}

	proxy, err := New(adapter, mockReadinessChecker{ready: true}, WithTransport(transport))
	if err != nil {
		b.Fatalf("Failed to create proxy: %v", err)
	}

	return proxy
}

// BenchmarkProxyStreaming measures end-to-end streaming latency through the
// translation layer: routing, middleware, handler, adapter, and SSE encoding.
// Excludes network latency (mocked transport).
func BenchmarkProxyStreaming(b *testing.B) {
	mockTransport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		responseBody:   benchStreamingBody,
		isStreaming:    true,
	}

	proxy := setupBenchProxy(b, mockTransport)
	server := httptest.NewServer(proxy)
	defer server.Close()

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		resp, err := http.Post(
			server.URL+"/v1/messages",
			"application/json",
			strings.NewReader(benchStreamingRequestBody),
		)
		if err != nil {
			b.Fatalf("Request failed: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			b.Fatalf("Unexpected status code: %d", resp.StatusCode)
		}

		// Drain with a raw byte copy to isolate proxy throughput from client
		// SSE parsing overhead.
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			b.Fatalf("Stream read error: %v", err)
		}
		_ = resp.Body.Close()
	}
}

// BenchmarkProxyNonStreaming measures end-to-end buffered response latency.
// Provides baseline comparison against streaming benchmarks to isolate SSE overhead.
func BenchmarkProxyNonStreaming(b *testing.B) {
	mockTransport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		responseBody:   benchBufferedBody,
	}

	proxy := setupBenchProxy(b, mockTransport)
	server := httptest.NewServer(proxy)
	defer server.Close()

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		resp, err := http.Post(
			server.URL+"/v1/messages",
			"application/json",
			strings.NewReader(benchRequestBody),
		)
		if err != nil {
			b.Fatalf("Request failed: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			b.Fatalf("Unexpected status code: %d", resp.StatusCode)
		}

		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			b.Fatalf("Failed to read response: %v", err)
		}
		_ = resp.Body.Close()
	}
}

// BenchmarkProxyConcurrentThroughput_Streaming measures concurrent streaming
// throughput using b.RunParallel to simulate realistic concurrent load.
func BenchmarkProxyConcurrentThroughput_Streaming(b *testing.B) {
	mockTransport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		responseBody:   benchStreamingBody,
		isStreaming:    true,
	}

	proxy := setupBenchProxy(b, mockTransport)
	server := httptest.NewServer(proxy)
	defer server.Close()

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			resp, err := http.Post(
				server.URL+"/v1/messages",
				"application/json",
				strings.NewReader(benchStreamingRequestBody),
			)
			if err != nil {
				b.Fatalf("Request failed: %v", err)
			}

			if resp.StatusCode != http.StatusOK {
				b.Fatalf("Unexpected status code: %d", resp.StatusCode)
			}

			if _, err := io.Copy(io.Discard, resp.Body); err != nil {
				b.Fatalf("Stream read error: %v", err)
			}
			_ = resp.Body.Close()
		}
	})
}

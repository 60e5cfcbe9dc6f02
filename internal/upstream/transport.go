// Package upstream constructs the HTTP invoker used against the
// OpenAI-compatible backend: a pooled base transport plus an optional
// bearer-token layer. The resulting transport is shared by all in-flight
// requests and is safe for concurrent use.
package upstream

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewBaseTransport creates the pooled transport for upstream calls.
func NewBaseTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewTransport layers bearer authentication over base when an API key is
// configured. An empty key returns base unchanged, for upstreams that run
// unauthenticated (local inference servers).
func NewTransport(apiKey string, base http.RoundTripper) http.RoundTripper {
	if apiKey == "" {
		return base
	}

	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey}),
		Base:   base,
	}
}

package github

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Transport returns a RoundTripper that stamps the session headers on every
// request before handing it to base
func (s *Session) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &sessionTransport{session: s, base: base}
}

type sessionTransport struct {
	session *Session
	base    http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	headers, err := t.session.Headers(req.Context())
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	if len(headers) == 0 {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	for key, values := range headers {
		clone.Header[key] = values
	}
	return t.base.RoundTrip(clone)
}

// newHTTPClient builds the HTTP client used to talk to GitHub. An injected
// client keeps its transport; otherwise a proxy aware transport is created.
func newHTTPClient(session *Session, config *Config) (*http.Client, error) {
	var httpClient http.Client
	var base http.RoundTripper

	if config.HTTPClient != nil {
		httpClient = *config.HTTPClient
		base = httpClient.Transport
	} else {
		proxy, err := proxyFunc(config.Proxy)
		if err != nil {
			return nil, err
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = proxy
		base = transport
	}

	switch {
	case config.Timeout > 0:
		httpClient.Timeout = config.Timeout
	case config.HTTPClient == nil:
		httpClient.Timeout = defaultTimeout
	}
	httpClient.Transport = session.Transport(base)

	return &httpClient, nil
}

// proxyFunc resolves the proxy to use. An explicit proxy URL wins over the
// HTTPS_PROXY and HTTP_PROXY environment variables.
func proxyFunc(proxy string) (func(*http.Request) (*url.URL, error), error) {
	if proxy == "" {
		return http.ProxyFromEnvironment, nil
	}

	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", proxy, err)
	}
	return http.ProxyURL(proxyURL), nil
}

// defaultTimeout bounds a single request when the configuration sets none
const defaultTimeout = 30 * time.Second

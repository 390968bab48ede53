package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v65/github"
	"github.com/rs/zerolog"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
)

const (
	// DefaultBaseURL is the GitHub REST API endpoint
	DefaultBaseURL = "https://api.github.com/"

	// DefaultUserAgent identifies this tool to GitHub
	DefaultUserAgent = "gitignore-maintainer (https://github.com/Jake-Mok-Nelson/gitignore-maintainer)"

	// AcceptJSON requests the JSON representation of a resource
	AcceptJSON = "application/vnd.github.v3+json"

	// AcceptRaw requests the raw content of a file
	AcceptRaw = "application/vnd.github.v3.raw"
)

// Config holds configuration options for the GitHub client
type Config struct {
	// BaseURL defaults to DefaultBaseURL
	BaseURL string

	// UserAgent defaults to DefaultUserAgent
	UserAgent string

	// Proxy is an explicit proxy URL. When empty HTTPS_PROXY and HTTP_PROXY
	// are honoured.
	Proxy string

	// Timeout bounds each request, defaults to 30 seconds
	Timeout time.Duration

	// HTTPClient replaces the default transport, mostly for tests
	HTTPClient *http.Client
}

// Client issues GET requests against the GitHub REST API. Every response is
// checked for rate limit exhaustion before its body is consumed.
type Client struct {
	// client builds requests with the base URL and User-Agent applied
	client     *github.Client
	httpClient *http.Client
	session    *Session
	logger     zerolog.Logger
}

// NewClient creates a GitHub client whose requests carry the session headers
func NewClient(session *Session, config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}
	httpClient, err := newHTTPClient(session, config)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(httpClient)

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	client.BaseURL, err = url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
	}

	client.UserAgent = DefaultUserAgent
	if config.UserAgent != "" {
		client.UserAgent = config.UserAgent
	}

	return &Client{
		client:     client,
		httpClient: httpClient,
		session:    session,
		logger:     logging.GetLogger("github").With().Str("session", session.ID).Logger(),
	}, nil
}

// Session returns the session attached to the client
func (c *Client) Session() *Session {
	return c.session
}

// Get requests path, relative to the base URL, with the given Accept header.
// On success the caller owns the response body.
//
// Errors are classified in this order: ErrRateLimitReached, *RequestError for
// any other non-success status, then *TransportError.
func (c *Client) Get(ctx context.Context, path, accept string) (*http.Response, error) {
	req, err := c.client.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", accept)

	target := req.URL.String()
	c.logger.Debug().Str("url", target).Str("accept", accept).Msg("GitHub API: GET")

	// Not go-github's Do: it refuses requests after an exhausted quota until
	// the reset time, even once the session carries a token. The session
	// decides about rate limits.
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, classify(ctx, target, nil, err)
	}

	c.logger.Debug().Str("url", target).Int("status", resp.StatusCode).Msg("GitHub API: response")

	if _, _, rateErr := c.session.CheckRateLimit(resp.StatusCode, resp.Header); rateErr != nil {
		resp.Body.Close()
		return nil, rateErr
	}

	if err := github.CheckResponse(resp); err != nil {
		return nil, classify(ctx, target, resp, err)
	}

	return resp, nil
}

// GetJSON requests path and decodes the JSON body into v
func (c *Client) GetJSON(ctx context.Context, path string, v interface{}) error {
	resp, err := c.Get(ctx, path, AcceptJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}

	return nil
}

// Download streams the raw content of path into w and returns the number of
// bytes written
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	resp, err := c.Get(ctx, path, AcceptRaw)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to download %s: %w", path, err)
	}

	c.logger.Debug().Str("path", path).Int64("bytes", n).Msg("GitHub API: download complete")
	return n, nil
}

// classify turns a go-github error into one of the package errors
func classify(ctx context.Context, target string, resp *http.Response, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %v", ErrRateLimitReached, err)
	}

	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		reqErr := &RequestError{URL: target, StatusCode: resp.StatusCode}

		// CheckResponse puts the body of a failed response back
		if body, readErr := io.ReadAll(resp.Body); readErr == nil && len(body) > 0 {
			reqErr.Body = string(body)
		} else {
			var errResp *github.ErrorResponse
			if errors.As(err, &errResp) {
				reqErr.Body = errResp.Message
			}
		}
		resp.Body.Close()

		return reqErr
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	return &TransportError{URL: target, Err: err}
}

package github

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimitReached is returned when GitHub reports that the API quota
	// of the caller is exhausted. Authenticating raises the quota.
	ErrRateLimitReached = errors.New("GitHub API rate limit reached")

	// ErrAuthenticationCancelled is returned when the user declines or aborts
	// authentication with GitHub
	ErrAuthenticationCancelled = errors.New("GitHub authentication cancelled")

	// ErrCredentialsCancelled is returned by credential sources when the user
	// aborts an interactive sign in
	ErrCredentialsCancelled = errors.New("credential request cancelled")
)

// RequestError is returned when GitHub answers with a non-success status that
// is not a rate limit
type RequestError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GitHub API request %s failed with status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GitHub API request %s failed with status code %d: %s", e.URL, e.StatusCode, e.Body)
}

// TransportError wraps network level failures such as refused connections,
// DNS errors and timeouts
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("GitHub API request %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

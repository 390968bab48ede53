package github

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// NoCredentials never yields a token
type NoCredentials struct{}

func (NoCredentials) Silent(context.Context) (*oauth2.Token, error)      { return nil, nil }
func (NoCredentials) Interactive(context.Context) (*oauth2.Token, error) { return nil, nil }

// TokenSourceCredentials serves tokens from an oauth2.TokenSource, both
// silently and interactively
type TokenSourceCredentials struct {
	source oauth2.TokenSource
}

// NewTokenSourceCredentials wraps source
func NewTokenSourceCredentials(source oauth2.TokenSource) *TokenSourceCredentials {
	return &TokenSourceCredentials{source: source}
}

// NewStaticCredentials serves a fixed personal access token
func NewStaticCredentials(token string) *TokenSourceCredentials {
	return NewTokenSourceCredentials(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

func (c *TokenSourceCredentials) Silent(context.Context) (*oauth2.Token, error) {
	return c.source.Token()
}

func (c *TokenSourceCredentials) Interactive(context.Context) (*oauth2.Token, error) {
	return c.source.Token()
}

// PromptCredentials asks the user for a token when signing in interactively
// and remembers it for later silent requests
type PromptCredentials struct {
	prompt func(ctx context.Context) (string, error)

	mu    sync.Mutex
	token *oauth2.Token
}

// NewPromptCredentials creates credentials backed by prompt. The prompt
// returns an empty string or ErrCredentialsCancelled when the user aborts.
func NewPromptCredentials(prompt func(ctx context.Context) (string, error)) *PromptCredentials {
	return &PromptCredentials{prompt: prompt}
}

func (c *PromptCredentials) Silent(context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func (c *PromptCredentials) Interactive(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid() {
		return c.token, nil
	}

	value, err := c.prompt(ctx)
	if err != nil {
		return nil, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrCredentialsCancelled
	}

	c.token = &oauth2.Token{AccessToken: value}
	return c.token, nil
}

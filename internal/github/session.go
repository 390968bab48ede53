package github

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
)

const (
	// RateLimitRemainingHeader carries the number of requests left in the
	// current rate limit window
	RateLimitRemainingHeader = "X-RateLimit-Remaining"

	// RateLimitLowWater is the remaining quota below which a failed request is
	// attributed to the rate limit
	RateLimitLowWater = 1

	// AuthorizationEnv may hold a complete Authorization header value that is
	// used when no access token was acquired
	AuthorizationEnv = "GITHUB_AUTHORIZATION"
)

// AuthContext records how the user interacts with GitHub authentication.
// It lives as long as the process and is shared by every Session.
type AuthContext struct {
	mu sync.Mutex

	// useAuthenticationProvider is set once the rate limit was hit and an
	// authenticated client should be used
	useAuthenticationProvider bool

	// hasUserAgreed is set once the user accepted to authenticate. It is
	// never reset; a decline is not remembered.
	hasUserAgreed bool
}

// NewAuthContext creates an unauthenticated context
func NewAuthContext() *AuthContext {
	return &AuthContext{}
}

// UsesAuthenticationProvider reports whether authentication was requested
func (a *AuthContext) UsesAuthenticationProvider() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.useAuthenticationProvider
}

// HasUserAgreed reports whether the user agreed to authenticate
func (a *AuthContext) HasUserAgreed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasUserAgreed
}

func (a *AuthContext) enableAuthenticationProvider() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.useAuthenticationProvider = true
}

func (a *AuthContext) agree() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hasUserAgreed = true
}

func (a *AuthContext) authenticating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.useAuthenticationProvider && a.hasUserAgreed
}

// CredentialSource hands out GitHub access tokens
type CredentialSource interface {
	// Silent returns a token the user already signed in with, or nil
	Silent(ctx context.Context) (*oauth2.Token, error)

	// Interactive signs the user in if necessary. It returns
	// ErrCredentialsCancelled when the user aborts.
	Interactive(ctx context.Context) (*oauth2.Token, error)
}

// ConsentFunc asks the user whether authenticating with GitHub is fine
type ConsentFunc func(ctx context.Context) (bool, error)

// SessionConfig holds the collaborators of a Session
type SessionConfig struct {
	// Credentials defaults to a source without any token
	Credentials CredentialSource

	// Consent defaults to agreeing without asking
	Consent ConsentFunc

	// AuthorizationOverride is sent verbatim as Authorization header when no
	// access token is available
	AuthorizationOverride string
}

// Session attaches credentials to GitHub requests and detects rate limit
// exhaustion. A session starts unauthenticated; once the rate limit is hit,
// TryGetAccessToken switches it to an authenticated user, whose quota is much
// higher than the per IP one.
//
// A Session is meant to live for a single command invocation.
type Session struct {
	ID string

	auth        *AuthContext
	credentials CredentialSource
	consent     ConsentFunc
	override    string
	logger      zerolog.Logger

	mu sync.Mutex
	// op is the current token acquisition. It is shared by every caller
	// while pending and only replaced once it resolved without a token.
	op *tokenOp
}

// NewSession creates a session bound to the process wide auth context
func NewSession(auth *AuthContext, config *SessionConfig) *Session {
	if config == nil {
		config = &SessionConfig{}
	}

	s := &Session{
		ID:          uuid.NewString(),
		auth:        auth,
		credentials: config.Credentials,
		consent:     config.Consent,
		override:    config.AuthorizationOverride,
	}
	if s.credentials == nil {
		s.credentials = NoCredentials{}
	}
	if s.consent == nil {
		s.consent = func(context.Context) (bool, error) { return true, nil }
	}
	s.logger = logging.GetLogger("github").With().Str("session", s.ID).Logger()

	return s
}

// TryGetAccessToken asks the user to authenticate with GitHub and returns the
// resulting access token, or an empty string when no token was obtained.
// Consent is asked only until the user agreed once. Concurrent callers share
// a single pending sign in; a pending silent lookup is superseded by one.
func (s *Session) TryGetAccessToken(ctx context.Context) (string, error) {
	s.auth.enableAuthenticationProvider()

	s.mu.Lock()
	op := s.op
	if !op.reusableForSignIn() {
		op = s.start(ctx, true, s.authenticate)
	}
	s.mu.Unlock()

	token, err := op.wait(ctx)
	if err != nil {
		return "", err
	}
	if !token.Valid() {
		return "", nil
	}
	return token.AccessToken, nil
}

// IsAuthenticated reports whether requests carry an access token
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	token, err := s.accessToken(ctx)
	return err == nil && token != ""
}

// Headers returns the headers to attach to a GitHub request
func (s *Session) Headers(ctx context.Context) (http.Header, error) {
	headers := http.Header{}

	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case token != "":
		s.logger.Debug().Msg("Setting authorization header from access token")
		headers.Set("Authorization", "Token "+token)
	case s.override != "":
		s.logger.Debug().Msg("Setting authorization header from " + AuthorizationEnv)
		headers.Set("Authorization", s.override)
	}

	return headers, nil
}

// CheckRateLimit inspects the rate limit headers of a response. It returns
// the remaining quota and whether GitHub reported one. A failed response with
// a quota below RateLimitLowWater yields ErrRateLimitReached.
func (s *Session) CheckRateLimit(statusCode int, header http.Header) (int, bool, error) {
	raw := header.Get(RateLimitRemainingHeader)
	if raw == "" {
		return 0, false, nil
	}

	remaining, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn().Str("value", raw).Msg("Ignoring unparseable rate limit header")
		return 0, false, nil
	}

	s.logger.Debug().Int("remaining", remaining).Msg("GitHub API rate limit remaining")

	if statusCode >= http.StatusBadRequest && remaining < RateLimitLowWater {
		return remaining, true, ErrRateLimitReached
	}

	return remaining, true, nil
}

// accessToken returns the token of the shared acquisition, starting a silent
// one when none exists yet. Only a user who agreed to authenticate gets one.
func (s *Session) accessToken(ctx context.Context) (string, error) {
	if !s.auth.authenticating() {
		return "", nil
	}

	s.mu.Lock()
	op := s.op
	if op == nil {
		s.logger.Info().Msg("Acquiring session from credential source")
		op = s.start(ctx, false, s.credentials.Silent)
	}
	s.mu.Unlock()

	token, err := op.wait(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.logger.Debug().Err(err).Msg("No access token available")
		return "", nil
	}
	if !token.Valid() {
		return "", nil
	}
	return token.AccessToken, nil
}

// authenticate asks for consent when needed and runs the interactive sign in
func (s *Session) authenticate(ctx context.Context) (*oauth2.Token, error) {
	if !s.auth.HasUserAgreed() {
		agreed, err := s.consent(ctx)
		if err != nil {
			return nil, normalizeCancellation(err)
		}
		if !agreed {
			s.logger.Info().Msg("User declined to authenticate with GitHub")
			return nil, ErrAuthenticationCancelled
		}

		s.auth.agree()
		s.logger.Info().Msg("User agreed to authenticate with GitHub")
	}

	s.logger.Info().Msg("Acquiring session interactively")
	token, err := s.credentials.Interactive(ctx)
	if err != nil {
		return nil, normalizeCancellation(err)
	}

	return token, nil
}

// start runs acquire in the background and installs it as the shared
// acquisition. The caller must hold s.mu.
func (s *Session) start(ctx context.Context, interactive bool, acquire func(context.Context) (*oauth2.Token, error)) *tokenOp {
	op := &tokenOp{done: make(chan struct{}), interactive: interactive}
	s.op = op

	// The acquisition is shared, one caller giving up must not cancel it
	// for the others.
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(op.done)
		op.token, op.err = acquire(detached)
	}()

	return op
}

func normalizeCancellation(err error) error {
	if errors.Is(err, ErrCredentialsCancelled) || errors.Is(err, context.Canceled) {
		return ErrAuthenticationCancelled
	}
	return err
}

// tokenOp is a token acquisition whose result is published by closing done
type tokenOp struct {
	done        chan struct{}
	interactive bool
	token       *oauth2.Token
	err         error
}

// reusableForSignIn reports whether a sign in can wait for op instead of
// starting its own: op is a pending sign in, or it already yielded a token.
func (op *tokenOp) reusableForSignIn() bool {
	if op == nil {
		return false
	}
	if !op.resolved() {
		return op.interactive
	}
	return op.token.Valid()
}

func (op *tokenOp) resolved() bool {
	select {
	case <-op.done:
		return true
	default:
		return false
	}
}

func (op *tokenOp) wait(ctx context.Context) (*oauth2.Token, error) {
	select {
	case <-op.done:
		return op.token, op.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

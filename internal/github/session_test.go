package github

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
)

func TestMain(m *testing.M) {
	logging.SetupTestLogger(io.Discard)
	os.Exit(m.Run())
}

// fakeCredentials counts calls and optionally blocks interactive sign in
// until release is closed
type fakeCredentials struct {
	mu               sync.Mutex
	silentCalls      int
	interactiveCalls int

	silentToken string
	token       string
	err         error

	started chan struct{}
	release chan struct{}
}

func (f *fakeCredentials) Silent(context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silentCalls++
	if f.silentToken == "" {
		return nil, nil
	}
	return &oauth2.Token{AccessToken: f.silentToken}, nil
}

func (f *fakeCredentials) Interactive(context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	f.interactiveCalls++
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: f.token}, nil
}

func (f *fakeCredentials) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.silentCalls, f.interactiveCalls
}

// countingConsent answers every consent request with answer
func countingConsent(answer bool, count *int) ConsentFunc {
	var mu sync.Mutex
	return func(context.Context) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		*count++
		return answer, nil
	}
}

func TestSession_HeadersUnauthenticated(t *testing.T) {
	session := NewSession(NewAuthContext(), nil)

	headers, err := session.Headers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, headers)
}

func TestSession_HeadersOverride(t *testing.T) {
	session := NewSession(NewAuthContext(), &SessionConfig{
		AuthorizationOverride: "Bearer from-env",
	})

	headers, err := session.Headers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer from-env", headers.Get("Authorization"))
}

func TestSession_InteractiveTokenWinsOverOverride(t *testing.T) {
	creds := &fakeCredentials{token: "abc"}
	session := NewSession(NewAuthContext(), &SessionConfig{
		Credentials:           creds,
		AuthorizationOverride: "Bearer from-env",
	})

	token, err := session.TryGetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	headers, err := session.Headers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Token abc", headers.Get("Authorization"))
	assert.True(t, session.IsAuthenticated(context.Background()))
}

func TestSession_DeclinedConsent(t *testing.T) {
	auth := NewAuthContext()
	creds := &fakeCredentials{token: "abc"}
	consents := 0
	session := NewSession(auth, &SessionConfig{
		Credentials: creds,
		Consent:     countingConsent(false, &consents),
	})

	_, err := session.TryGetAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrAuthenticationCancelled)
	assert.True(t, auth.UsesAuthenticationProvider())
	assert.False(t, auth.HasUserAgreed())

	// A decline is not remembered: the next attempt asks again
	_, err = session.TryGetAccessToken(context.Background())
	assert.ErrorIs(t, err, ErrAuthenticationCancelled)
	assert.Equal(t, 2, consents)

	_, interactive := creds.calls()
	assert.Equal(t, 0, interactive)

	headers, err := session.Headers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, headers)
}

func TestSession_AgreementIsSticky(t *testing.T) {
	auth := NewAuthContext()
	consents := 0
	consent := countingConsent(true, &consents)

	first := NewSession(auth, &SessionConfig{Credentials: &fakeCredentials{token: "one"}, Consent: consent})
	_, err := first.TryGetAccessToken(context.Background())
	require.NoError(t, err)

	second := NewSession(auth, &SessionConfig{Credentials: &fakeCredentials{token: "two"}, Consent: consent})
	token, err := second.TryGetAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "two", token)
	assert.Equal(t, 1, consents, "consent must only be asked once per auth context")
}

func TestSession_ResolvedTokenIsReused(t *testing.T) {
	creds := &fakeCredentials{token: "abc"}
	session := NewSession(NewAuthContext(), &SessionConfig{Credentials: creds})

	for i := 0; i < 3; i++ {
		token, err := session.TryGetAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
	}

	_, interactive := creds.calls()
	assert.Equal(t, 1, interactive)
}

func TestSession_CancelledSignInIsNormalized(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "credentials cancelled", err: ErrCredentialsCancelled},
		{name: "context cancelled", err: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSession(NewAuthContext(), &SessionConfig{
				Credentials: &fakeCredentials{err: tt.err},
			})

			_, err := session.TryGetAccessToken(context.Background())
			assert.ErrorIs(t, err, ErrAuthenticationCancelled)
		})
	}
}

func TestSession_OtherSignInErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	session := NewSession(NewAuthContext(), &SessionConfig{
		Credentials: &fakeCredentials{err: boom},
	})

	_, err := session.TryGetAccessToken(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAuthenticationCancelled)
}

func TestSession_ConcurrentCallersShareOneSignIn(t *testing.T) {
	creds := &fakeCredentials{
		token:   "shared",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	consents := 0
	session := NewSession(NewAuthContext(), &SessionConfig{
		Credentials: creds,
		Consent:     countingConsent(true, &consents),
	})

	const callers = 5
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tokens[0], errs[0] = session.TryGetAccessToken(context.Background())
	}()

	// Wait for the first sign in to be pending before adding more callers
	<-creds.started
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = session.TryGetAccessToken(context.Background())
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	close(creds.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", tokens[i])
	}

	_, interactive := creds.calls()
	assert.Equal(t, 1, interactive)
	assert.Equal(t, 1, consents)
}

func TestSession_WaiterHonoursItsContext(t *testing.T) {
	creds := &fakeCredentials{
		token:   "late",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	session := NewSession(NewAuthContext(), &SessionConfig{Credentials: creds})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := session.TryGetAccessToken(ctx)
		done <- err
	}()

	<-creds.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The shared sign in keeps running for other callers
	close(creds.release)
	token, err := session.TryGetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", token)
}

func TestSession_SilentTokenAfterAgreement(t *testing.T) {
	auth := NewAuthContext()
	consents := 0
	first := NewSession(auth, &SessionConfig{
		Credentials: &fakeCredentials{token: "abc"},
		Consent:     countingConsent(true, &consents),
	})
	_, err := first.TryGetAccessToken(context.Background())
	require.NoError(t, err)

	// A later invocation picks the token up silently
	creds := &fakeCredentials{silentToken: "abc"}
	second := NewSession(auth, &SessionConfig{Credentials: creds})

	for i := 0; i < 2; i++ {
		headers, err := second.Headers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Token abc", headers.Get("Authorization"))
	}

	silent, interactive := creds.calls()
	assert.Equal(t, 1, silent, "the silent acquisition is shared")
	assert.Equal(t, 0, interactive)
}

// slowSilentCredentials blocks silent lookups until release is closed
type slowSilentCredentials struct {
	started chan struct{}
	release chan struct{}
}

func (c *slowSilentCredentials) Silent(context.Context) (*oauth2.Token, error) {
	close(c.started)
	<-c.release
	return nil, nil
}

func (c *slowSilentCredentials) Interactive(context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "interactive"}, nil
}

func TestSession_SignInSupersedesPendingSilentLookup(t *testing.T) {
	auth := NewAuthContext()
	_, err := NewSession(auth, &SessionConfig{Credentials: NewStaticCredentials("earlier")}).
		TryGetAccessToken(context.Background())
	require.NoError(t, err)

	creds := &slowSilentCredentials{started: make(chan struct{}), release: make(chan struct{})}
	defer close(creds.release)
	session := NewSession(auth, &SessionConfig{Credentials: creds})

	go session.Headers(context.Background())
	<-creds.started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	token, err := session.TryGetAccessToken(ctx)
	require.NoError(t, err, "sign in must not wait for the silent lookup")
	assert.Equal(t, "interactive", token)
}

func TestSession_CheckRateLimit(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		remaining     string
		wantRemaining int
		wantOK        bool
		wantErr       error
	}{
		{name: "no header", status: http.StatusOK},
		{name: "no header on failure", status: http.StatusForbidden},
		{name: "unparseable header", status: http.StatusForbidden, remaining: "lots"},
		{name: "success with quota", status: http.StatusOK, remaining: "42", wantRemaining: 42, wantOK: true},
		{name: "success with exhausted quota", status: http.StatusOK, remaining: "0", wantRemaining: 0, wantOK: true},
		{name: "failure with quota", status: http.StatusNotFound, remaining: "12", wantRemaining: 12, wantOK: true},
		{name: "failure with exhausted quota", status: http.StatusForbidden, remaining: "0", wantRemaining: 0, wantOK: true, wantErr: ErrRateLimitReached},
		{name: "too many requests", status: http.StatusTooManyRequests, remaining: "0", wantRemaining: 0, wantOK: true, wantErr: ErrRateLimitReached},
	}

	session := NewSession(NewAuthContext(), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.remaining != "" {
				header.Set(RateLimitRemainingHeader, tt.remaining)
			}

			remaining, ok, err := session.CheckRateLimit(tt.status, header)
			assert.Equal(t, tt.wantRemaining, remaining)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPromptCredentials(t *testing.T) {
	prompts := 0
	creds := NewPromptCredentials(func(context.Context) (string, error) {
		prompts++
		return "  pat-123\n", nil
	})

	silent, err := creds.Silent(context.Background())
	require.NoError(t, err)
	assert.Nil(t, silent)

	token, err := creds.Interactive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pat-123", token.AccessToken)

	silent, err = creds.Silent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pat-123", silent.AccessToken)

	_, err = creds.Interactive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, prompts)
}

func TestPromptCredentials_EmptyAnswerCancels(t *testing.T) {
	creds := NewPromptCredentials(func(context.Context) (string, error) { return "", nil })

	_, err := creds.Interactive(context.Background())
	assert.ErrorIs(t, err, ErrCredentialsCancelled)
}

func TestStaticCredentials(t *testing.T) {
	creds := NewStaticCredentials("static")

	token, err := creds.Silent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", token.AccessToken)

	token, err = creds.Interactive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", token.AccessToken)
}

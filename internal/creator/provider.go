package creator

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/github"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/gitignore"
)

// Session acquires an access token once the rate limit is reached
type Session interface {
	TryGetAccessToken(ctx context.Context) (string, error)
}

// authenticatingProvider retries a call once after signing in when GitHub
// reports an exhausted rate limit
type authenticatingProvider struct {
	gitignore.Provider
	session Session
	logger  zerolog.Logger
}

func (p *authenticatingProvider) Templates(ctx context.Context) ([]gitignore.Template, error) {
	templates, err := p.Provider.Templates(ctx)
	if !errors.Is(err, github.ErrRateLimitReached) {
		return templates, err
	}

	if err := p.authenticate(ctx); err != nil {
		return nil, err
	}
	return p.Provider.Templates(ctx)
}

func (p *authenticatingProvider) Download(ctx context.Context, template gitignore.Template, w io.Writer) (int64, error) {
	n, err := p.Provider.Download(ctx, template, w)
	// a rate limited response has no body, so nothing reached w yet
	if n > 0 || !errors.Is(err, github.ErrRateLimitReached) {
		return n, err
	}

	if err := p.authenticate(ctx); err != nil {
		return 0, err
	}
	return p.Provider.Download(ctx, template, w)
}

func (p *authenticatingProvider) authenticate(ctx context.Context) error {
	p.logger.Info().Msg("Rate limit reached, signing in to GitHub")

	if _, err := p.session.TryGetAccessToken(ctx); err != nil {
		return err
	}

	p.logger.Debug().Msg("Signed in, retrying request")
	return nil
}

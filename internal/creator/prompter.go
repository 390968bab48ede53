package creator

import (
	"context"
	"errors"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/github"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/gitignore"
)

// ErrCancelled is returned by a Prompter when the user dismisses a prompt
var ErrCancelled = errors.New("cancelled by user")

// ConsentQuestion is asked before signing in to GitHub
const ConsentQuestion = "GitHub API rate limit reached. Do you want to authenticate with GitHub?"

// Prompter asks the user to resolve choices the command line left open
type Prompter interface {
	PickTemplate(ctx context.Context, templates []gitignore.Template) (gitignore.Template, error)
	PickFolder(ctx context.Context, folders []string) (string, error)
	// PickOperation is asked when target already exists
	PickOperation(ctx context.Context, target string) (gitignore.OperationType, error)
	Confirm(ctx context.Context, question string) (bool, error)
}

// Consent asks p for permission to sign in. A dismissed prompt counts as a
// decline.
func Consent(p Prompter) github.ConsentFunc {
	return func(ctx context.Context) (bool, error) {
		ok, err := p.Confirm(ctx, ConsentQuestion)
		if errors.Is(err, ErrCancelled) {
			return false, nil
		}
		return ok, err
	}
}

// Package creator runs the add and list commands: it resolves the template,
// folder and operation, signs in to GitHub when the rate limit is reached,
// and writes the .gitignore file.
package creator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/github"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/gitignore"
	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
)

// Config wires a Creator
type Config struct {
	Provider gitignore.Provider
	Session  Session
	Prompter Prompter

	// Filesystem opens a project folder, osfs when nil
	Filesystem func(folder string) billy.Filesystem
}

// Request describes one add command. Empty fields are resolved by prompting.
type Request struct {
	Template string
	Folders  []string
	// Operation is used when the target exists, nil asks the prompter
	Operation *gitignore.OperationType
}

// Outcome is the result of a completed add command
type Outcome struct {
	Folder  string
	Result  *gitignore.Result
	Message string
}

// Creator orchestrates the commands
type Creator struct {
	provider   gitignore.Provider
	prompter   Prompter
	filesystem func(folder string) billy.Filesystem
	logger     zerolog.Logger
}

// New creates a Creator
func New(config *Config) *Creator {
	logger := logging.GetLogger("creator")

	filesystem := config.Filesystem
	if filesystem == nil {
		filesystem = func(folder string) billy.Filesystem { return osfs.New(folder) }
	}

	return &Creator{
		provider: &authenticatingProvider{
			Provider: config.Provider,
			session:  config.Session,
			logger:   logger,
		},
		prompter:   config.Prompter,
		filesystem: filesystem,
		logger:     logger,
	}
}

// List returns the template catalog
func (c *Creator) List(ctx context.Context) ([]gitignore.Template, error) {
	return c.provider.Templates(ctx)
}

// Add writes a template into the .gitignore of a project folder. It returns
// nil without error when the user cancelled a prompt or the sign in.
func (c *Creator) Add(ctx context.Context, req Request) (*Outcome, error) {
	outcome, err := c.add(ctx, req)
	if errors.Is(err, ErrCancelled) || errors.Is(err, github.ErrAuthenticationCancelled) {
		c.logger.Debug().Err(err).Msg("Add cancelled")
		return nil, nil
	}
	return outcome, err
}

func (c *Creator) add(ctx context.Context, req Request) (*Outcome, error) {
	folder, err := c.resolveFolder(ctx, req.Folders)
	if err != nil {
		return nil, err
	}

	template, err := c.resolveTemplate(ctx, req.Template)
	if err != nil {
		return nil, err
	}

	fs := c.filesystem(folder)

	opType, err := c.resolveOperation(ctx, fs, folder, req.Operation)
	if err != nil {
		return nil, err
	}

	writer := gitignore.NewWriter(fs, c.provider)
	result, err := writer.Apply(ctx, gitignore.Operation{
		Type:     opType,
		Target:   gitignore.FileName,
		Template: template,
	})
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Folder:  folder,
		Result:  result,
		Message: message(result, location(folder, len(req.Folders))),
	}, nil
}

func (c *Creator) resolveFolder(ctx context.Context, folders []string) (string, error) {
	switch len(folders) {
	case 0:
		return "", errors.New("no project folder given")
	case 1:
		return folders[0], nil
	default:
		return c.prompter.PickFolder(ctx, folders)
	}
}

func (c *Creator) resolveTemplate(ctx context.Context, name string) (gitignore.Template, error) {
	templates, err := c.provider.Templates(ctx)
	if err != nil {
		return gitignore.Template{}, err
	}

	if name == "" {
		return c.prompter.PickTemplate(ctx, templates)
	}

	template, ok := gitignore.Lookup(templates, name)
	if !ok {
		return gitignore.Template{}, fmt.Errorf("unknown template %q", name)
	}
	return template, nil
}

func (c *Creator) resolveOperation(ctx context.Context, fs billy.Filesystem, folder string, requested *gitignore.OperationType) (gitignore.OperationType, error) {
	_, err := fs.Stat(gitignore.FileName)
	if errors.Is(err, os.ErrNotExist) {
		return gitignore.Overwrite, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", gitignore.FileName, err)
	}

	if requested != nil {
		return *requested, nil
	}
	return c.prompter.PickOperation(ctx, filepath.Join(folder, gitignore.FileName))
}

func location(folder string, folders int) string {
	if folders > 1 {
		return filepath.Base(folder)
	}
	return "the project root"
}

func message(result *gitignore.Result, where string) string {
	name := result.Operation.Template.Name
	if result.Operation.Type == gitignore.Append && !result.Created {
		return fmt.Sprintf("Appended %s to the existing .gitignore in %s", name, where)
	}
	return fmt.Sprintf("Created .gitignore file in %s based on %s", where, name)
}

package gitignore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-github/v65/github"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
)

const (
	repositoryContentsPath = "repos/github/gitignore/contents"
	repositoryCacheKey     = "gitignore/"
)

// repositoryDirectories are the directories of github/gitignore holding
// templates
var repositoryDirectories = []string{"", "Global"}

// RepositoryProvider lists the github/gitignore repository through the
// contents endpoint of the GitHub REST API. Unlike the gitignore endpoint it
// also offers the global templates for editors and operating systems.
// https://docs.github.com/en/rest/repos/contents
type RepositoryProvider struct {
	client  Client
	catalog *catalog
}

// NewRepositoryProvider creates a provider listing the repository through
// client
func NewRepositoryProvider(client Client, cache Cache) *RepositoryProvider {
	p := &RepositoryProvider{client: client}

	sources := make([]source, 0, len(repositoryDirectories))
	for _, dir := range repositoryDirectories {
		dir := dir
		sources = append(sources, source{
			key: repositoryCacheKey + dir,
			fetch: func(ctx context.Context) ([]Template, error) {
				return p.fetchDirectory(ctx, dir)
			},
		})
	}

	p.catalog = &catalog{
		cache:   cache,
		sources: sources,
		logger:  logging.GetLogger("gitignore").With().Str("provider", "repository").Logger(),
	}
	return p
}

// Templates returns the templates of all directories sorted by name
func (p *RepositoryProvider) Templates(ctx context.Context) ([]Template, error) {
	return p.catalog.templates(ctx)
}

// Download streams the raw template content into w
func (p *RepositoryProvider) Download(ctx context.Context, template Template, w io.Writer) (int64, error) {
	return p.client.Download(ctx, contentsPath(template.Path), w)
}

// fetchDirectory lists the .gitignore files of one repository directory
func (p *RepositoryProvider) fetchDirectory(ctx context.Context, dir string) ([]Template, error) {
	var items []*github.RepositoryContent
	if err := p.client.GetJSON(ctx, contentsPath(dir), &items); err != nil {
		return nil, fmt.Errorf("failed to list gitignore templates in %q: %w", dir, err)
	}

	var templates []Template
	for _, item := range items {
		if item.GetType() != "file" || !strings.HasSuffix(item.GetName(), FileName) {
			continue
		}

		templates = append(templates, Template{
			Name:        strings.TrimSuffix(item.GetName(), FileName),
			Path:        item.GetPath(),
			DownloadURL: item.GetDownloadURL(),
			Type:        item.GetType(),
		})
	}

	return templates, nil
}

func contentsPath(p string) string {
	if p == "" {
		return repositoryContentsPath
	}
	return repositoryContentsPath + "/" + escapePath(p)
}

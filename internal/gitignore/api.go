package gitignore

import (
	"context"
	"fmt"
	"io"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/logging"
)

const (
	apiTemplatesPath = "gitignore/templates"
	apiCacheKey      = "gitignore"
)

// APIProvider uses the gitignore templates endpoint of the GitHub REST API,
// which lists template names only.
// https://docs.github.com/en/rest/gitignore
type APIProvider struct {
	client  Client
	catalog *catalog
}

// NewAPIProvider creates a provider listing templates through client
func NewAPIProvider(client Client, cache Cache) *APIProvider {
	p := &APIProvider{client: client}
	p.catalog = &catalog{
		cache:   cache,
		sources: []source{{key: apiCacheKey, fetch: p.fetchTemplates}},
		logger:  logging.GetLogger("gitignore").With().Str("provider", "api").Logger(),
	}
	return p
}

// Templates returns all templates
func (p *APIProvider) Templates(ctx context.Context) ([]Template, error) {
	return p.catalog.templates(ctx)
}

// Download streams the raw template content into w
func (p *APIProvider) Download(ctx context.Context, template Template, w io.Writer) (int64, error) {
	return p.client.Download(ctx, apiTemplatesPath+"/"+escapePath(template.Path), w)
}

func (p *APIProvider) fetchTemplates(ctx context.Context) ([]Template, error) {
	var names []string
	if err := p.client.GetJSON(ctx, apiTemplatesPath, &names); err != nil {
		return nil, fmt.Errorf("failed to list gitignore templates: %w", err)
	}

	templates := make([]Template, 0, len(names))
	for _, name := range names {
		templates = append(templates, Template{Name: name, Path: name})
	}
	return templates, nil
}

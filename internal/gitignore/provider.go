// Package gitignore fetches .gitignore templates from GitHub and writes them
// into project folders.
package gitignore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Provider lists templates and downloads their content
type Provider interface {
	// Templates returns the template catalog
	Templates(ctx context.Context) ([]Template, error)

	// Download streams the content of template into w and returns the
	// number of bytes written. Content is never cached.
	Download(ctx context.Context, template Template, w io.Writer) (int64, error)
}

// Client is the subset of the GitHub client the providers need
type Client interface {
	GetJSON(ctx context.Context, path string, v interface{}) error
	Download(ctx context.Context, path string, w io.Writer) (int64, error)
}

// Cache stores catalog listings between calls
type Cache interface {
	Add(key string, value interface{})
	Get(key string, value interface{}) bool
}

// FetchContent downloads the whole content of template
func FetchContent(ctx context.Context, provider Provider, template Template) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := provider.Download(ctx, template, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Lookup finds a template by name or path, ignoring case
func Lookup(templates []Template, name string) (Template, bool) {
	name = strings.TrimSuffix(strings.TrimSpace(name), FileName)
	for _, t := range templates {
		if strings.EqualFold(t.Name, name) || strings.EqualFold(strings.TrimSuffix(t.Path, FileName), name) {
			return t, true
		}
	}
	return Template{}, false
}

// source is one remotely listed part of a catalog, cached under key
type source struct {
	key   string
	fetch func(ctx context.Context) ([]Template, error)
}

// catalog serves the listing shared by all providers: every source is read
// from the cache or fetched and cached, and a catalog merged from several
// sources is sorted by name.
type catalog struct {
	cache   Cache
	sources []source
	logger  zerolog.Logger
}

func (c *catalog) templates(ctx context.Context) ([]Template, error) {
	var templates []Template

	for _, src := range c.sources {
		var cached []Template
		if c.cache.Get(src.key, &cached) {
			c.logger.Debug().Str("key", src.key).Int("templates", len(cached)).Msg("Using cached templates")
			templates = append(templates, cached...)
			continue
		}

		fetched, err := src.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.cache.Add(src.key, fetched)
		c.logger.Debug().Str("key", src.key).Int("templates", len(fetched)).Msg("Fetched templates")
		templates = append(templates, fetched...)
	}

	if len(c.sources) > 1 {
		sortTemplates(templates)
	}

	return templates, nil
}

// sortTemplates orders templates by name the way a user reading English
// expects, rather than by byte value
func sortTemplates(templates []Template) {
	collator := collate.New(language.English)
	slices.SortStableFunc(templates, func(a, b Template) int {
		return collator.CompareString(a.Name, b.Name)
	})
}

// escapePath escapes every segment of a slash separated path
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

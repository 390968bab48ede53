package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/Jake-Mok-Nelson/gitignore-maintainer/internal/gitignore"
)

// ListResult represents the template catalog returned by a provider
type ListResult struct {
	Provider  string               `json:"provider"`
	ListTime  time.Time            `json:"list_time"`
	Templates []gitignore.Template `json:"templates"`
	Summary   Summary              `json:"summary"`
}

// Summary provides aggregate statistics about the catalog
type Summary struct {
	TotalTemplates int `json:"total_templates"`
	// TemplatesByDirectory counts templates per repository directory, "."
	// for the root
	TemplatesByDirectory map[string]int `json:"templates_by_directory"`
}

// FormatJSON outputs the catalog as JSON
func FormatJSON(result *ListResult, writer io.Writer, pretty bool) error {
	var data []byte
	var err error

	if pretty {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, err = writer.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}

	return nil
}

// BuildListResult constructs a list result from provider templates
func BuildListResult(provider string, templates []gitignore.Template) *ListResult {
	if templates == nil {
		templates = []gitignore.Template{}
	}

	return &ListResult{
		Provider:  provider,
		ListTime:  time.Now(),
		Templates: templates,
		Summary:   calculateSummary(templates),
	}
}

// calculateSummary generates summary statistics from templates
func calculateSummary(templates []gitignore.Template) Summary {
	summary := Summary{
		TotalTemplates:       len(templates),
		TemplatesByDirectory: make(map[string]int),
	}

	for _, template := range templates {
		summary.TemplatesByDirectory[path.Dir(template.Path)]++
	}

	return summary
}

package gitignore

import (
	"fmt"
	"strings"
)

// FileName is the name of the file every operation writes
const FileName = ".gitignore"

// Template is a .gitignore template offered by a provider
type Template struct {
	// Name without the .gitignore suffix, e.g. "Go"
	Name string `json:"name"`
	// Path addresses the template content at the provider
	Path        string `json:"path"`
	DownloadURL string `json:"download_url,omitempty"`
	Type        string `json:"type,omitempty"`
}

// OperationType tells how template content is combined with an existing file
type OperationType int

const (
	// Append keeps the existing file and adds the template below it
	Append OperationType = iota
	// Overwrite replaces the file with the template
	Overwrite
)

func (t OperationType) String() string {
	switch t {
	case Append:
		return "Append"
	case Overwrite:
		return "Overwrite"
	default:
		return fmt.Sprintf("OperationType(%d)", int(t))
	}
}

// ParseOperationType parses "append" or "overwrite", ignoring case
func ParseOperationType(s string) (OperationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "append":
		return Append, nil
	case "overwrite":
		return Overwrite, nil
	default:
		return 0, fmt.Errorf("unknown operation %q: expected append or overwrite", s)
	}
}

// Operation writes a template into a .gitignore file
type Operation struct {
	Type OperationType
	// Target is the path of the .gitignore file within the filesystem the
	// operation is applied to
	Target   string
	Template Template
}

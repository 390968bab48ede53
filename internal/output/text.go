package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// FormatText outputs the catalog as an aligned table followed by a summary
// line
func FormatText(result *ListResult, writer io.Writer) error {
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tPATH")
	for _, template := range result.Templates {
		fmt.Fprintf(tw, "%s\t%s\n", template.Name, template.Path)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}

	_, err := fmt.Fprintf(writer, "\n%s templates from the %s provider\n",
		humanize.Comma(int64(result.Summary.TotalTemplates)), result.Provider)
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	return nil
}

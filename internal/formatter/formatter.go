// package formatter renders catalog listings as text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/shared"
)

// Supported output formats.
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formats lists the values accepted by [Render].
var Formats = []string{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// Listing is one page of a catalog listing, flattened for output.
type Listing struct {
	Title         string       `json:"title"`
	Rows          []models.Row `json:"rows"`
	Page          int          `json:"page"`
	TotalPages    int          `json:"total_pages"`
	TotalElements int          `json:"total_elements"`
}

// NewListing builds a [Listing] from a page and its flattened rows.
func NewListing[T any](title string, page *models.Page[T], rows []models.Row) Listing {
	return Listing{
		Title:         title,
		Rows:          rows,
		Page:          page.CurrentPage,
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatCSV:
		return "csv"
	case FormatMarkdown:
		return "md"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// Render converts l to the given format.
func Render(l Listing, format string) ([]byte, error) {
	switch format {
	case FormatText, "":
		return ToText(l)
	case FormatCSV:
		return ToCSV(l)
	case FormatMarkdown:
		return ToMarkdown(l), nil
	case FormatJSON:
		return shared.MarshalJSON(l, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidInput, format, strings.Join(Formats, ", "))
	}
}

// ToCSV converts a Listing to CSV format with columns: ID, Name, Detail
func ToCSV(l Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Detail"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range l.Rows {
		if err := writer.Write([]string{strconv.FormatInt(row.ID, 10), row.Name, row.Detail}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a Listing to a Markdown table under a heading.
func ToMarkdown(l Listing) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", l.Title)
	fmt.Fprintf(&buf, "**Page**: %s\n\n", pageLabel(l))

	if len(l.Rows) == 0 {
		buf.WriteString("_No entries._\n")
		return buf.Bytes()
	}

	buf.WriteString("| ID | Name | Detail |\n")
	buf.WriteString("|---:|------|--------|\n")
	for _, row := range l.Rows {
		fmt.Fprintf(&buf, "| %d | %s | %s |\n", row.ID, escapeCell(row.Name), escapeCell(row.Detail))
	}

	return buf.Bytes()
}

// ToText converts a Listing to aligned columns.
func ToText(l Listing) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s (%s)\n\n", l.Title, pageLabel(l))

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDETAIL")
	for _, row := range l.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", row.ID, row.Name, row.Detail)
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to align text: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteListing renders l into {dir}/{name}.{ext} and returns the file path.
func WriteListing(l Listing, format, dir, name string) (string, error) {
	data, err := Render(l, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, name+"."+Extension(format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func pageLabel(l Listing) string {
	if l.TotalPages == 0 {
		return fmt.Sprintf("%d entries", len(l.Rows))
	}
	return fmt.Sprintf("page %d of %d, %d total", l.Page+1, l.TotalPages, l.TotalElements)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// package formatter renders projects for the terminal and exports them as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/zipdrop/internal/models"
	"github.com/desertthunder/zipdrop/internal/shared"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatFileSize renders bytes with a 1024 base and up to two decimals, e.g. "4.2 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	i = min(i, len(sizeUnits)-1)

	value := float64(bytes) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(value*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}

// FormatDate renders t relative to now: "just now", "5 minutes ago", "yesterday", or a short
// date for anything a week or older.
func FormatDate(t, now time.Time) string {
	diff := now.Sub(t)
	mins := int(diff / time.Minute)
	hours := int(diff / time.Hour)
	days := int(diff / (24 * time.Hour))

	switch {
	case mins < 1:
		return "just now"
	case mins < 60:
		return plural(mins, "minute") + " ago"
	case hours < 24:
		return plural(hours, "hour") + " ago"
	case days == 1:
		return "yesterday"
	case days < 7:
		return plural(days, "day") + " ago"
	default:
		if t.Year() != now.Year() {
			return t.Format("Jan 2, 2006")
		}
		return t.Format("Jan 2")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ExportToCSV converts projects to CSV with columns: ID, Name, Slug, Size, Files, Views, Public, URL, Status, Updated
func ExportToCSV(projects []models.Project) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Slug", "Size", "Files", "Views", "Public", "URL", "Status", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range projects {
		record := []string{
			p.ID,
			p.Name,
			p.Slug,
			strconv.FormatInt(p.Size, 10),
			strconv.Itoa(p.Files()),
			strconv.Itoa(p.Views()),
			strconv.FormatBool(p.IsPublic),
			p.URL(),
			string(p.Status),
			p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts projects to a Markdown summary with one section per project.
func ExportToMarkdown(projects []models.Project, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Projects\n\n")
	buf.WriteString(fmt.Sprintf("**Projects**: %d\n", len(projects)))
	buf.WriteString(fmt.Sprintf("**Public**: %d\n\n", countPublic(projects)))

	for _, p := range projects {
		buf.WriteString(fmt.Sprintf("## %s\n\n", p.Name))
		buf.WriteString(fmt.Sprintf("- **Slug**: `%s`\n", p.Slug))
		buf.WriteString(fmt.Sprintf("- **Status**: %s\n", p.Status))
		buf.WriteString(fmt.Sprintf("- **Size**: %s, %d files\n", FormatFileSize(p.Size), p.Files()))
		buf.WriteString(fmt.Sprintf("- **Visibility**: %s\n", shared.VisibilityString(p.IsPublic)))
		if u := p.URL(); u != "" {
			buf.WriteString(fmt.Sprintf("- **URL**: <%s>\n", u))
		}
		buf.WriteString(fmt.Sprintf("- **Updated**: %s\n\n", FormatDate(p.UpdatedAt, now)))
	}

	return buf.Bytes(), nil
}

// ExportToText renders projects as an aligned table.
func ExportToText(projects []models.Project, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "NAME\tSLUG\tSIZE\tFILES\tVIEWS\tSTATUS\tVISIBILITY\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			p.Name, p.Slug, FormatFileSize(p.Size), p.Files(), p.Views(),
			p.Status, shared.VisibilityString(p.IsPublic), FormatDate(p.UpdatedAt, now))
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}
	return buf.Bytes(), nil
}

// ProjectDetail renders a single project as "Key: value" lines.
func ProjectDetail(p models.Project, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "ID: %s\n", p.ID)
	fmt.Fprintf(&b, "Slug: %s\n", p.Slug)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	fmt.Fprintf(&b, "Size: %s\n", FormatFileSize(p.Size))
	fmt.Fprintf(&b, "Files: %d\n", p.Files())
	fmt.Fprintf(&b, "Views: %d\n", p.Views())
	fmt.Fprintf(&b, "Visibility: %s\n", shared.VisibilityString(p.IsPublic))
	if u := p.URL(); u != "" {
		fmt.Fprintf(&b, "URL: %s\n", u)
	}
	fmt.Fprintf(&b, "Created: %s\n", FormatDate(p.CreatedAt, now))
	fmt.Fprintf(&b, "Updated: %s\n", FormatDate(p.UpdatedAt, now))
	return b.String()
}

// ToJSON encodes projects as an indented JSON array.
func ToJSON(projects []models.Project) ([]byte, error) {
	if projects == nil {
		projects = []models.Project{}
	}
	return shared.MarshalJSON(projects, true)
}

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or a common alias ("md", "txt").
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, value)
	}
}

// Export renders projects in format.
func Export(projects []models.Project, format Format, now time.Time) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(projects)
	case FormatMarkdown:
		return ExportToMarkdown(projects, now)
	case FormatJSON:
		return ToJSON(projects)
	case FormatText:
		return ExportToText(projects, now)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Extension returns the file extension written for format.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// WriteExport writes projects to path in format.
//
// Defaults to projects{ext} in the working directory.
func WriteExport(projects []models.Project, format Format, path string, now time.Time) (string, error) {
	if path == "" {
		path = "projects" + format.Extension()
	}

	data, err := Export(projects, format, now)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

func countPublic(projects []models.Project) int {
	n := 0
	for _, p := range projects {
		if p.IsPublic {
			n++
		}
	}
	return n
}

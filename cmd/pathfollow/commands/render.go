package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/pathfollow/internal/follow"
)

// Output formats.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
	FormatHTML  = "html"
)

const (
	shortHashLen  = 8
	yamlIndent    = 2
	summaryMaxLen = 60
	deletedMarker = "(deleted)"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

// Renderer writes a follow report in one output format.
type Renderer struct {
	format  string
	deleted *color.Color
	renamed *color.Color
	hash    *color.Color
}

// NewRenderer validates format and creates a Renderer for it.
func NewRenderer(format string) (*Renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	switch format {
	case FormatTable, FormatYAML, FormatJSON, FormatHTML:
	default:
		return nil, fmt.Errorf("%w: %q (want %s)", ErrUnknownFormat, format,
			strings.Join([]string{FormatTable, FormatYAML, FormatJSON, FormatHTML}, ", "))
	}

	return &Renderer{
		format:  format,
		deleted: color.New(color.FgRed),
		renamed: color.New(color.FgYellow),
		hash:    color.New(color.FgCyan),
	}, nil
}

// Render writes report to w. now anchors relative dates in tables.
func (r *Renderer) Render(w io.Writer, report *follow.Report, now time.Time) error {
	switch r.format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(report)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(yamlIndent)

		err := encoder.Encode(report)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return encoder.Close()
	case FormatHTML:
		return renderChart(w, report)
	default:
		return r.renderTable(w, report, now)
	}
}

func (r *Renderer) renderTable(w io.Writer, report *follow.Report, now time.Time) error {
	if len(report.Entries) == 0 {
		_, err := fmt.Fprintf(w, "No history found for %s\n", report.Path)

		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Commit", "Date", "Author", "Path", "Summary"})

	for i, entry := range report.Entries {
		path := entry.Path
		if i > 0 && report.Entries[i-1].Path != entry.Path && !report.Entries[i-1].Deleted {
			path = r.renamed.Sprint(path)
		}

		if entry.Deleted {
			path += " " + r.deleted.Sprint(deletedMarker)
		}

		tbl.AppendRow(table.Row{
			r.hash.Sprint(shorten(entry.Hash, shortHashLen)),
			humanize.RelTime(entry.When, now, "ago", "from now"),
			entry.Author,
			path,
			text.Trim(entry.Summary, summaryMaxLen),
		})
	}

	tbl.Render()

	_, err := fmt.Fprintln(w, footer(report.Summary, len(report.Renames)))

	return err
}

func footer(s follow.Summary, renames int) string {
	parts := []string{
		english.Plural(s.Commits, "commit", ""),
		english.Plural(renames, "rename", ""),
	}

	if s.Excluded > 0 {
		parts = append(parts, humanize.Comma(int64(s.Excluded))+" excluded")
	}

	if s.Collapsed > 0 {
		parts = append(parts, english.Plural(s.Collapsed, "merge", "")+" collapsed")
	}

	return strings.Join(parts, ", ") + " of " + humanize.Comma(int64(s.LoadedCommits)) + " loaded"
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}

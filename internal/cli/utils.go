// Package cli formats run reports, run history and search results for the
// terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/storage"
)

// OutputFormat selects text or JSON output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for other programs.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" and "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputText, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReport writes a run report. Text output lists every warning, grouped
// by kind in a fixed order, after a one-line summary.
func WriteReport(w io.Writer, report *models.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "%s: %d section(s), %d file(s), %d warning(s) in %s\n",
		report.Command, report.Sections, len(report.Files), len(report.Warnings),
		report.Duration().Round(time.Millisecond))
	for _, f := range report.Files {
		fmt.Fprintf(w, "  wrote %s\n", f)
	}
	if len(report.Warnings) == 0 {
		return nil
	}
	counts := report.CountByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "\n%s (%d)\n", k, counts[models.WarningKind(k)])
		for _, warn := range report.Warnings {
			if string(warn.Kind) == k {
				fmt.Fprintf(w, "  %s\n", describe(warn))
			}
		}
	}
	return nil
}

func describe(warn models.Warning) string {
	var ids []string
	if warn.SectionID != "" {
		ids = append(ids, "section "+warn.SectionID)
	}
	if warn.AnnotationID != "" {
		ids = append(ids, "annotation "+warn.AnnotationID)
	}
	if len(ids) == 0 {
		return warn.Detail
	}
	return strings.Join(ids, ", ") + ": " + warn.Detail
}

// WriteRuns writes a page of run history.
func WriteRuns(w io.Writer, runs []*storage.RunSummary, total int64, format OutputFormat) error {
	if format == OutputJSON {
		if runs == nil {
			runs = []*storage.RunSummary{}
		}
		return writeJSON(w, map[string]interface{}{"runs": runs, "total": total})
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-9s  %-19s  %8s  %8s  %s\n", "RUN", "COMMAND", "STARTED", "SECTIONS", "WARNINGS", "OUTPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-9s  %-19s  %8d  %8d  %s\n",
			r.RunID, r.Command, r.Started.Local().Format("2006-01-02 15:04:05"), r.Sections, r.Warnings, r.OutputDir)
	}
	if int64(len(runs)) < total {
		fmt.Fprintf(w, "(%d of %d runs)\n", len(runs), total)
	}
	return nil
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d section(s) in %dms", response.Total, response.QueryTime)
	if response.AutoFuzzy {
		fmt.Fprint(w, " (fuzzy)")
	}
	fmt.Fprintln(w)
	if response.Total == 0 && response.DidYouMean != "" {
		fmt.Fprintf(w, "Did you mean: %s\n", response.DidYouMean)
	}
	fmt.Fprintln(w)
	for _, hit := range response.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | Section: %s\n", hit.Rank, hit.Score, hit.SectionID)
		if hit.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", hit.Title)
		}
		if hit.Snippet != "" {
			fmt.Fprintf(w, "\n%s\n", PlainSnippet(hit.Snippet))
		}
		fmt.Fprintln(w)
	}
	return nil
}

var markReplacer = strings.NewReplacer("<mark>", "[", "</mark>", "]")

// PlainSnippet turns a highlighted snippet into terminal text, marking hits
// with brackets.
func PlainSnippet(s string) string {
	return html.UnescapeString(markReplacer.Replace(s))
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"weeklabel/pkg/github"
	"weeklabel/pkg/weeks"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutputFormat(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("invalid --output %q: must be %s, %s or %s", format, outputText, outputJSON, outputYAML)
	}
}

type syncReport struct {
	RunID            string             `json:"run_id" yaml:"run_id"`
	Scope            string             `json:"scope" yaml:"scope"`
	Strategy         string             `json:"strategy" yaml:"strategy"`
	Labels           []string           `json:"labels" yaml:"labels"`
	EnumerationError string             `json:"enumeration_error,omitempty" yaml:"enumeration_error,omitempty"`
	BulkError        string             `json:"bulk_error,omitempty" yaml:"bulk_error,omitempty"`
	Bulk             []bulkEntry        `json:"bulk,omitempty" yaml:"bulk,omitempty"`
	Summary          github.SyncSummary `json:"summary" yaml:"summary"`
	Failures         []failureEntry     `json:"failures" yaml:"failures"`
}

type bulkEntry struct {
	Label   string `json:"label" yaml:"label"`
	Created bool   `json:"created" yaml:"created"`
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

type failureEntry struct {
	Repository string `json:"repository" yaml:"repository"`
	Label      string `json:"label" yaml:"label"`
	Error      string `json:"error" yaml:"error"`
}

func newSyncReport(scope github.Scope, strategy github.Strategy, window []weeks.WeekLabel) *syncReport {
	names := make([]string, 0, len(window))
	for _, w := range window {
		names = append(names, w.Name)
	}
	return &syncReport{
		Scope:    scope.String(),
		Strategy: string(strategy),
		Labels:   names,
		Failures: []failureEntry{},
	}
}

func (r *syncReport) setBulk(outcome bulkOutcome) {
	if outcome.err != nil {
		r.BulkError = outcome.err.Error()
		return
	}
	for _, res := range outcome.results {
		entry := bulkEntry{Label: res.Label.Name, Created: res.Created, ID: res.LabelID}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		r.Bulk = append(r.Bulk, entry)
	}
}

func (r *syncReport) setResult(result *github.SyncResult) {
	r.Summary = result.Summary
	for _, p := range result.Failures() {
		r.Failures = append(r.Failures, failureEntry{
			Repository: p.Repository.String(),
			Label:      p.Label.Name,
			Error:      p.Error(),
		})
	}
}

func renderReport(w io.Writer, report *syncReport, format string) error {
	switch format {
	case outputJSON:
		return writeJSON(w, report)
	case outputYAML:
		return writeYAML(w, report)
	default:
		renderTextReport(w, report)
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func renderTextReport(w io.Writer, r *syncReport) {
	fmt.Fprintf(w, "📋 Week labels for %s (%s)\n", r.Scope, r.Strategy)
	if n := len(r.Labels); n > 0 {
		fmt.Fprintf(w, "   Window: %s .. %s (%d labels)\n", r.Labels[0], r.Labels[n-1], n)
	} else {
		fmt.Fprintln(w, "   Window: empty")
	}

	if r.EnumerationError != "" {
		fmt.Fprintf(w, "⚠️  Repository listing incomplete: %s\n", r.EnumerationError)
	}

	if r.BulkError != "" {
		fmt.Fprintf(w, "⚠️  Organization labels skipped: %s\n", r.BulkError)
	} else if len(r.Bulk) > 0 {
		created := 0
		for _, b := range r.Bulk {
			if b.Created {
				created++
			}
		}
		fmt.Fprintf(w, "🏢 Organization labels created: %d/%d\n", created, len(r.Bulk))
	}

	fmt.Fprintln(w)
	s := r.Summary
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Repositories", "Labels", "Created", "Updated", "Unchanged", "Failed", "Skipped"})
	table.Append([]string{
		strconv.Itoa(s.Repositories),
		strconv.Itoa(s.Labels),
		strconv.Itoa(s.Created),
		strconv.Itoa(s.Updated),
		strconv.Itoa(s.Unchanged),
		strconv.Itoa(s.Failed),
		strconv.Itoa(s.Skipped),
	})
	table.Render()

	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "\n❌ %d pair(s) failed:\n", len(r.Failures))
		failures := tablewriter.NewWriter(w)
		failures.SetHeader([]string{"Repository", "Label", "Error"})
		failures.SetAutoWrapText(false)
		for _, f := range r.Failures {
			failures.Append([]string{f.Repository, f.Label, f.Error})
		}
		failures.Render()
		return
	}

	if s.Skipped > 0 {
		fmt.Fprintf(w, "\n⚠️  Interrupted: %d pair(s) not attempted\n", s.Skipped)
		return
	}

	fmt.Fprintln(w, "\n✅ All labels are up to date")
}

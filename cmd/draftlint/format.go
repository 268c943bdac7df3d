package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/draftlint"
)

// outputResult writes a CLIResult to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []draftlint.Diagnostic:
		formatDiagnosticsText(w, v)
	case []CLIRule:
		formatRulesText(w, v)
	case draftlint.Summary:
		formatSummaryText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatDiagnosticsText formats diagnostics as aligned
// "file:line:col  message  [rule]" lines followed by a count.
func formatDiagnosticsText(w io.Writer, diags []draftlint.Diagnostic) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, d := range diags {
		fmt.Fprintf(tw, "%s:%d:%d\t%s\t[%s]\n", d.File, d.StartLine, d.StartCol, d.Message, d.Rule)
	}
	tw.Flush()
	if len(diags) > 0 {
		fmt.Fprintf(w, "\n%d %s\n", len(diags), plural(len(diags), "problem", "problems"))
	}
}

// formatRulesText formats rule listings as aligned columns.
func formatRulesText(w io.Writer, rules []CLIRule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tDESCRIPTION")
	for _, r := range rules {
		desc := r.Description
		if r.Source == "script" {
			desc = r.Path
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Source, desc)
	}
	tw.Flush()

	for _, r := range rules {
		if len(r.Messages) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s messages:\n", r.ID)
		kinds := make([]string, 0, len(r.Messages))
		for k := range r.Messages {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  %s: %s\n", k, r.Messages[k])
		}
	}
}

// formatSummaryText formats a Summary as readable text.
func formatSummaryText(w io.Writer, s draftlint.Summary) {
	fmt.Fprintln(w, "Lint Summary")
	fmt.Fprintln(w, "============")
	fmt.Fprintf(w, "Files: %d\n", s.Files)
	fmt.Fprintf(w, "Diagnostics: %d\n", s.Diagnostics)

	if len(s.ByRule) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By Rule:")
		for _, c := range s.ByRule {
			fmt.Fprintf(w, "  %s: %d\n", c.Rule, c.Count)
		}
	}
	if len(s.ByFile) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By File:")
		for _, c := range s.ByFile {
			fmt.Fprintf(w, "  %s: %d\n", c.Path, c.Count)
		}
	}
	if len(s.ByLanguage) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By Language:")
		for _, lang := range slices.Sorted(maps.Keys(s.ByLanguage)) {
			fmt.Fprintf(w, "  %s: %d\n", lang, s.ByLanguage[lang])
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

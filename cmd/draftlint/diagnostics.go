package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/draftlint"
	"github.com/jward/draftlint/internal/store"
)

var (
	flagFile string
	flagRule string
)

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Show stored diagnostics without re-linting",
	Long:  "Reads the results of the last lint run from the database. Lines and columns are 1-based.",
	Args:  cobra.NoArgs,
	RunE:  runDiagnostics,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show diagnostic counts per rule and per file",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	diagnosticsCmd.Flags().StringVar(&flagFile, "file", "", "only diagnostics of this file")
	diagnosticsCmd.Flags().StringVar(&flagRule, "rule", "", "only diagnostics of this rule")
	diagnosticsCmd.AddCommand(summaryCmd)
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("diagnostics", err)
	}
	defer s.Close()
	qb := draftlint.NewQueryBuilder(s)

	var diags []draftlint.Diagnostic
	switch {
	case flagFile != "":
		file, err := resolveFilePath(flagFile)
		if err != nil {
			return outputError("diagnostics", err)
		}
		diags, err = qb.DiagnosticsByFile(file)
		if err != nil {
			return outputError("diagnostics", err)
		}
		if flagRule != "" {
			diags = byRule(diags, flagRule)
		}
	case flagRule != "":
		diags, err = qb.DiagnosticsByRule(flagRule)
	default:
		diags, err = qb.Diagnostics()
	}
	if err != nil {
		return outputError("diagnostics", err)
	}
	if diags == nil {
		diags = []draftlint.Diagnostic{}
	}

	total := len(diags)
	return outputResult(cmd.OutOrStdout(), CLIResult{
		Command:    "diagnostics",
		Results:    diags,
		TotalCount: &total,
	})
}

func runSummary(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("summary", err)
	}
	defer s.Close()

	summary, err := draftlint.NewQueryBuilder(s).Summary()
	if err != nil {
		return outputError("summary", err)
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{
		Command: "summary",
		Results: *summary,
	})
}

// openStore opens the Store from the --db flag path (or default).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'draftlint lint' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

func byRule(diags []draftlint.Diagnostic, rule string) []draftlint.Diagnostic {
	out := make([]draftlint.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Rule == rule {
			out = append(out, d)
		}
	}
	return out
}

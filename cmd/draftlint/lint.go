package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/draftlint"
	"github.com/jward/draftlint/scripts"
)

var (
	flagForce         bool
	flagWatch         bool
	flagExclude       []string
	flagSerial        bool
	flagLanguages     string
	flagTarget        string
	flagModules       []string
	flagRequireImport bool
)

var lintCmd = &cobra.Command{
	Use:   "lint [path]",
	Short: "Lint a directory for external mutations inside produce callbacks",
	Long:  "Parses every JavaScript and TypeScript file under path, runs the built-in rule and any script rules, stores the results and prints them. Unchanged files are served from the cache. Exits 1 when anything is reported.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLint,
}

func init() {
	def := draftlint.DefaultRuleOptions()
	lintCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and lint from scratch")
	lintCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "lint again whenever a file changes")
	lintCmd.Flags().StringArrayVar(&flagExclude, "exclude", nil, "skip files matching this glob, relative to path (repeatable)")
	lintCmd.Flags().BoolVar(&flagSerial, "serial", false, "lint files one at a time")
	lintCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. javascript,tsx)")
	lintCmd.Flags().StringVar(&flagTarget, "target", def.Target, "name of the produce helper")
	lintCmd.Flags().StringSliceVar(&flagModules, "module", def.Modules, "module the helper is imported from (repeatable)")
	lintCmd.Flags().BoolVar(&flagRequireImport, "require-import", def.RequireImport, "only recognize the helper when imported from --module")
}

func runLint(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	cacheDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", cacheDir, err)
	}

	if flagForce {
		if err := removeDatabase(dbPath); err != nil {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Cleared database: %s\n", dbPath)
	}

	engine, err := draftlint.New(dbPath, lintOptions(cmd)...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if flagWatch {
		return watchLint(cmd, engine, targetDir)
	}

	stats, err := engine.LintDirectory(cmd.Context(), targetDir)
	if err != nil {
		return outputError("lint", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Linted %s in %s (%d files, %d cached)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		stats.Files,
		stats.Cached(),
	)

	total, err := printDiagnostics(cmd, engine, targetDir)
	if err != nil {
		return outputError("lint", err)
	}
	if total > 0 {
		return errDiagnosticsFound
	}
	return nil
}

// watchLint lints targetDir on every change until interrupted.
func watchLint(cmd *cobra.Command, engine *draftlint.Engine, targetDir string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (press Ctrl-C to stop)\n", targetDir)
	return engine.Watch(ctx, targetDir, 0, func(stats draftlint.Stats, err error) {
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
			return
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] Linted %d files (%d cached)\n",
			time.Now().Format(time.TimeOnly), stats.Files, stats.Cached())
		if _, err := printDiagnostics(cmd, engine, targetDir); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		}
	})
}

// printDiagnostics writes the stored diagnostics under targetDir and
// returns how many there were.
func printDiagnostics(cmd *cobra.Command, engine *draftlint.Engine, targetDir string) (int, error) {
	all, err := engine.Query().Diagnostics()
	if err != nil {
		return 0, err
	}
	diags := underDir(all, targetDir)

	total := len(diags)
	err = outputResult(cmd.OutOrStdout(), CLIResult{
		Command:    "lint",
		Results:    diags,
		TotalCount: &total,
	})
	return total, err
}

// lintOptions builds Engine options from the lint flags.
func lintOptions(cmd *cobra.Command) []draftlint.Option {
	opts := []draftlint.Option{
		draftlint.WithLogger(newLogger(cmd.ErrOrStderr(), flagVerbose)),
		draftlint.WithParallel(!flagSerial),
		draftlint.WithRuleOptions(draftlint.RuleOptions{
			Target:        flagTarget,
			Modules:       flagModules,
			RequireImport: flagRequireImport,
		}),
	}
	if len(flagExclude) > 0 {
		opts = append(opts, draftlint.WithExclude(flagExclude...))
	}
	if flagLanguages != "" {
		langs := strings.Split(flagLanguages, ",")
		for i := range langs {
			langs[i] = strings.TrimSpace(langs[i])
		}
		opts = append(opts, draftlint.WithLanguages(langs...))
	}
	// --scripts-dir overrides the bundled rules.
	if flagScriptsDir != "" {
		opts = append(opts, draftlint.WithScriptsDir(flagScriptsDir))
	} else {
		opts = append(opts, draftlint.WithScriptsFS(scripts.FS))
	}
	return opts
}

// underDir keeps the diagnostics of files inside dir. The database is
// shared across the repository, so it may hold results for sibling trees.
func underDir(diags []draftlint.Diagnostic, dir string) []draftlint.Diagnostic {
	prefix := dir + string(filepath.Separator)
	out := make([]draftlint.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if strings.HasPrefix(d.File, prefix) {
			out = append(out, d)
		}
	}
	return out
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/draftlint"
	"github.com/jward/draftlint/internal/runtime"
	"github.com/jward/draftlint/scripts"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the built-in rule and the script rules",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

func runRules(cmd *cobra.Command, args []string) error {
	rules, err := listRules(flagScriptsDir)
	if err != nil {
		return outputError("rules", err)
	}
	return outputResult(cmd.OutOrStdout(), CLIResult{
		Command: "rules",
		Results: rules,
	})
}

// listRules returns the built-in rules followed by the script rules found
// in scriptsDir, or the bundled script rules when scriptsDir is empty.
func listRules(scriptsDir string) ([]CLIRule, error) {
	var rules []CLIRule
	for _, m := range draftlint.BuiltinRules() {
		rules = append(rules, CLIRule{
			ID:          m.ID,
			Source:      "builtin",
			Type:        m.Type,
			Description: m.Description,
			Messages:    m.Messages,
		})
	}
	rt := runtime.NewRuntime(scriptsDir)
	if scriptsDir == "" {
		rt = runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS))
	}
	names, err := rt.Scripts()
	if err != nil {
		return nil, err
	}
	for _, s := range names {
		rules = append(rules, CLIRule{
			ID:     runtime.RuleName(s),
			Source: "script",
			Path:   s,
		})
	}
	return rules, nil
}

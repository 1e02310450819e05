package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/shopcard/cmd/shopcard/ui"
	"github.com/spherical/shopcard/internal/llm"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List AI providers and whether they are configured",
	Long: `List the AI providers in detection order. The first configured provider
is used unless --provider or analysis.provider selects another one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses := llm.Statuses(os.Getenv)

		ui.Section("AI Providers")
		ui.Table([]string{"Provider", "Variable", "Configured", "Vision", "Structured"}, providerRows(statuses))

		for _, s := range statuses {
			if s.Configured {
				ui.Newline()
				ui.Success("Auto-detected provider: %s", s.Name)
				return nil
			}
		}
		ui.Newline()
		ui.Warning("No provider configured, conversions will use rule-based analysis")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func providerRows(statuses []llm.Status) [][]string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, []string{s.Name, s.EnvVar, yesNo(s.Configured), yesNo(s.Vision), yesNo(s.Structured)})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

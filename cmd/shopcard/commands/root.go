package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/shopcard/cmd/shopcard/ui"
	"github.com/spherical/shopcard/internal/config"
	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	logFormat string

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shopcard",
	Short: "Convert product catalog PDFs into HTML shopping cards",
	Long: `shopcard reads a product catalog PDF, interprets it with an AI provider
(or local rules when none is available) and writes an HTML shopping card,
a JSON export and the rendered page images.

The provider is picked from the first API key found in the environment:
DEEPSEEK_API_KEY, ANTHROPIC_API_KEY, HUGGINGFACE_API_KEY, GOOGLE_API_KEY,
OPENAI_API_KEY, OPENROUTER_API_KEY, GOOGLE_CLOUD_PROJECT (Vertex AI), OLLAMA_HOST.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logFormat != "" {
			loaded.Log.Format = logFormat
		}
		if verbose {
			loaded.Log.Level = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return domain.ConfigError("invalid configuration", err)
		}
		cfg = loaded

		logger = observability.NewLogger(observability.LogConfig{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			Output:  os.Stderr,
			NoColor: noColor,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

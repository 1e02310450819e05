package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/shopcard/cmd/shopcard/ui"
	"github.com/spherical/shopcard/internal/convert"
	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/publish"
)

var (
	convertOutput     string
	convertLang       string
	convertNoAI       bool
	convertNoVision   bool
	convertAIOnly     bool
	convertNoJSON     bool
	convertNoImages   bool
	convertMarkdown   bool
	convertProvider   string
	convertNoFallback bool
	convertPublish    string
	convertDemo       bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdf_path]",
	Short: "Convert a catalog PDF into an HTML shopping card",
	Long: `Convert a catalog PDF into an HTML shopping card.

Without a path (or with --demo) the first PDF in the current directory is used.`,
	Example: `  shopcard convert catalog.pdf
  shopcard convert catalog.pdf --output product.html
  shopcard convert catalog.pdf --no-ai
  shopcard convert catalog.pdf --ai-only --lang persian
  shopcard convert catalog.pdf --publish gs://my-bucket/cards`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringVarP(&convertOutput, "output", "o", "", "output HTML file path (default: <name>_shopping_card.html)")
	f.StringVar(&convertLang, "lang", "english", "output language: english, persian or chinese")
	f.BoolVar(&convertNoAI, "no-ai", false, "disable AI analysis and use rules only")
	f.BoolVar(&convertNoVision, "no-vision", false, "disable vision AI and send text only")
	f.BoolVar(&convertAIOnly, "ai-only", false, "use AI without vision")
	f.BoolVar(&convertNoJSON, "no-json", false, "do not write the JSON exports")
	f.BoolVar(&convertNoImages, "no-images", false, "do not save page images")
	f.BoolVar(&convertMarkdown, "markdown", false, "also write a Markdown version of the card")
	f.StringVar(&convertProvider, "provider", "", "AI provider to use instead of auto-detection")
	f.BoolVar(&convertNoFallback, "no-fallback", false, "fail instead of falling back to rules when AI is unavailable")
	f.StringVar(&convertPublish, "publish", "", "upload the results to gs://bucket/prefix")
	f.BoolVar(&convertDemo, "demo", false, "convert the first PDF found in the current directory")
	convertCmd.MarkFlagsMutuallyExclusive("no-ai", "ai-only")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pdfPath, err := resolvePDFPath(args, convertDemo, ".")
	if err != nil {
		return err
	}
	opts, err := convertOptions()
	if err != nil {
		return err
	}
	if convertPublish != "" {
		if err := cfg.SetPublishURL(convertPublish); err != nil {
			return domain.ConfigError("invalid --publish location", err)
		}
	}

	p, err := convert.Build(ctx, cfg, opts, os.Getenv, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	providerName := "none (rules)"
	if p.Provider != nil {
		providerName = fmt.Sprintf("%s (%s)", p.Provider.Name(), p.Provider.Model())
	}
	ui.Section("PDF to Shopping Card")
	ui.KeyValue("Input", filepath.Base(pdfPath))
	ui.KeyValue("Started", time.Now().Format("2006-01-02 15:04:05"))
	ui.KeyValue("AI Enabled", fmt.Sprintf("%t", opts.UseAI))
	ui.KeyValue("Vision AI", fmt.Sprintf("%t", opts.UseAI && opts.UseVision))
	ui.KeyValue("Provider", providerName)
	ui.KeyValue("Language", string(opts.Language))
	ui.Newline()

	events := make(chan domain.StreamEvent, 100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		showProgress(events)
	}()

	res, err := p.Convert(ctx, pdfPath, opts, events)
	close(events)
	<-done
	if err != nil {
		return err
	}

	ui.CatalogSummary(res.Catalog, res.Artifacts.HTMLPath, res.Duration)

	if cfg.PublishEnabled() {
		if err := publishArtifacts(cmd, res); err != nil {
			return err
		}
	}

	ui.Newline()
	ui.Success("Open %s in your browser to view the shopping card", res.Artifacts.HTMLPath)
	return nil
}

// convertOptions turns flags and configuration into conversion options
func convertOptions() (convert.Options, error) {
	lang, err := domain.ParseLanguage(convertLang)
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		UseAI:      !convertNoAI,
		UseVision:  !convertNoVision && !convertAIOnly,
		Language:   lang,
		OutputPath: convertOutput,
		SaveJSON:   cfg.Output.SaveJSON && !convertNoJSON,
		SaveImages: cfg.Output.SaveImages && !convertNoImages,
		Markdown:   cfg.Output.Markdown || convertMarkdown,
		Provider:   convertProvider,
		Fallback:   cfg.Analysis.Fallback && !convertNoFallback,
	}, nil
}

// resolvePDFPath returns the path argument, or the first PDF in dir when no
// path is given or demo mode is on
func resolvePDFPath(args []string, demo bool, dir string) (string, error) {
	if len(args) > 0 && !demo {
		return args[0], nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return "", domain.ValidationError("failed to search for PDF files", err)
	}
	if len(matches) == 0 {
		return "", domain.ValidationError("no PDF file specified and none found in the current directory", nil)
	}
	sort.Strings(matches)
	if demo {
		ui.Info("Demo mode: processing %s", filepath.Base(matches[0]))
	} else {
		ui.Info("Auto-detected PDF: %s", filepath.Base(matches[0]))
	}
	return matches[0], nil
}

// showProgress renders conversion events until the channel is closed
func showProgress(events <-chan domain.StreamEvent) {
	var (
		bar  *ui.ProgressBar
		spin *ui.Spinner
	)
	stopSpinner := func() {
		if spin != nil {
			spin.Stop()
			spin = nil
		}
	}
	finishBar := func() {
		if bar != nil {
			bar.Finish()
			bar = nil
		}
	}
	defer stopSpinner()

	for event := range events {
		switch event.Type {
		case domain.EventStart:
			if ui.Verbose() {
				ui.Info("%v", event.Payload)
			}

		case domain.EventPageComplete:
			if bar == nil {
				bar = ui.NewProgressBar(int64(event.TotalPages), "Extracting pages")
			}
			bar.Set(int64(event.PageNumber))

		case domain.EventAnalyzing, domain.EventTranslating:
			finishBar()
			msg := fmt.Sprintf("%v...", event.Payload)
			if spin == nil {
				spin = ui.NewSpinner(msg)
				spin.Start()
			} else {
				spin.UpdateMessage(msg)
			}

		case domain.EventRendering:
			stopSpinner()
			ui.Info("%v", event.Payload)

		case domain.EventWarning:
			stopSpinner()
			ui.Warning("%v", event.Payload)

		case domain.EventError:
			finishBar()
			stopSpinner()

		case domain.EventComplete:
			stopSpinner()
		}
	}
}

func publishArtifacts(cmd *cobra.Command, res *convert.Result) error {
	ctx := cmd.Context()
	pub, err := publish.New(ctx, cfg.Publish.Bucket, cfg.Publish.Prefix, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	spin := ui.NewSpinner(fmt.Sprintf("Uploading to gs://%s...", cfg.Publish.Bucket))
	spin.Start()
	uploads, err := pub.Publish(ctx, res.RunID, res.Artifacts)
	spin.Stop()
	if err != nil {
		return err
	}

	ui.Section("Published")
	for _, u := range uploads {
		if u.Skipped {
			ui.KeyValue("exists", u.URL)
			continue
		}
		ui.KeyValue("uploaded", u.URL)
	}
	return nil
}

package convert

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spherical/shopcard/internal/analyze"
	"github.com/spherical/shopcard/internal/config"
	"github.com/spherical/shopcard/internal/llm"
	"github.com/spherical/shopcard/internal/observability"
	"github.com/spherical/shopcard/internal/pdf"
	"github.com/spherical/shopcard/internal/render"
)

// Pipeline is a ready-to-run Service plus the provider it talks to
type Pipeline struct {
	*Service
	Provider llm.Provider // nil when analysis is heuristic only
}

// Close releases the provider client when it holds resources
func (p *Pipeline) Close() error {
	if c, ok := p.Provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Build wires extractor, analyzer, translator and generator from cfg.
// getenv defaults to os.Getenv.
func Build(ctx context.Context, cfg *config.Config, opts Options, getenv func(string) string, log *observability.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if log == nil {
		log = observability.Nop()
	}

	var provider llm.Provider
	if opts.UseAI {
		p, err := selectProvider(ctx, cfg, opts, getenv, log)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	extractor := pdf.NewConverter(pdf.Options{
		DPI:       cfg.Extraction.DPI,
		Quality:   cfg.Extraction.JPEGQuality,
		MaxFileMB: cfg.Extraction.MaxFileMB,
	}, log)

	a := cfg.Analysis
	analyzer := analyze.NewAnalyzer(provider, analyze.Options{
		Limits: analyze.Limits{
			VisionPages:     a.VisionPages,
			VisionImages:    a.VisionImages,
			VisionTextLimit: a.VisionTextLimit,
			TextLimit:       a.TextLimit,
			TableLimit:      a.TableLimit,
			TableRows:       a.TableRows,
			MaxTokens:       a.MaxTokens,
		},
		Fallback: opts.Fallback,
	}, log)
	translator := analyze.NewTranslator(provider, a.MaxTokens, log)
	generator := render.NewGenerator(log)

	svc := NewService(extractor, analyzer, translator, generator, cfg.Output.Dir, log)
	return &Pipeline{Service: svc, Provider: provider}, nil
}

// selectProvider resolves the provider for this run. A missing provider is
// not an error here; the analyzer applies the fallback rule.
func selectProvider(ctx context.Context, cfg *config.Config, opts Options, getenv func(string) string, log *observability.Logger) (llm.Provider, error) {
	explicit := strings.TrimSpace(opts.Provider)
	if explicit == "" {
		explicit = cfg.Analysis.Provider
	}

	settings, ok, err := llm.Detect(getenv, explicit, cfg.Analysis.Model, cfg.Analysis.Timeout)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Debug().Msg("no AI provider found in the environment")
		return nil, nil
	}

	provider, err := llm.New(ctx, settings, log)
	if err != nil {
		if opts.Fallback && explicit == "" {
			log.Warn().Err(err).Str("provider", settings.Name).Msg("failed to initialize provider")
			return nil, nil
		}
		return nil, err
	}
	log.Info().Str("provider", provider.Name()).Str("model", provider.Model()).Msg("AI provider selected")
	return provider, nil
}

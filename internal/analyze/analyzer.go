package analyze

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/llm"
	"github.com/spherical/shopcard/internal/observability"
)

const analysisTemperature = 0.1

// Options configures an Analyzer
type Options struct {
	Limits Limits
	// Fallback switches to heuristic analysis when the provider is missing or fails
	Fallback bool
}

// Analyzer implements domain.Analyzer on top of an optional llm.Provider
type Analyzer struct {
	provider llm.Provider
	opts     Options
	log      *observability.Logger
	now      func() time.Time
}

// NewAnalyzer creates an analyzer. provider may be nil, in which case only
// heuristic analysis is available.
func NewAnalyzer(provider llm.Provider, opts Options, log *observability.Logger) *Analyzer {
	if log == nil {
		log = observability.Nop()
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	return &Analyzer{
		provider: provider,
		opts:     opts,
		log:      log.WithOperation("analyze"),
		now:      time.Now,
	}
}

// Analyze interprets the extraction and returns a normalized catalog
func (a *Analyzer) Analyze(ctx context.Context, ext *domain.Extraction, opts domain.AnalyzeOptions) (*domain.Catalog, error) {
	if ext == nil {
		return nil, domain.ExtractionError("nothing to analyze", nil)
	}
	log := a.log.WithContext(ctx)

	if !opts.UseAI {
		log.Info().Msg("AI disabled, using heuristic analysis")
		return a.finish(Heuristic(ext), ext, domain.ModeHeuristic, ""), nil
	}

	if a.provider == nil {
		if !a.opts.Fallback {
			return nil, domain.ConfigError("no AI provider configured; set an API key or pass --no-ai", nil)
		}
		log.Warn().Msg("no AI provider configured, falling back to heuristic analysis")
		return a.finish(Heuristic(ext), ext, domain.ModeHeuristic, ""), nil
	}

	log = log.WithProvider(a.provider.Name())
	c, mode, err := a.withProvider(ctx, ext, opts.UseVision, log)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, err
		}
		if !a.opts.Fallback {
			return nil, err
		}
		log.Warn().Err(err).Msg("AI analysis failed, falling back to heuristic analysis")
		return a.finish(Heuristic(ext), ext, domain.ModeHeuristic, ""), nil
	}
	return a.finish(c, ext, mode, a.provider.Name()), nil
}

func (a *Analyzer) withProvider(ctx context.Context, ext *domain.Extraction, useVision bool, log *observability.Logger) (*domain.Catalog, string, error) {
	caps := a.provider.Capabilities()
	lim := a.opts.Limits

	if !caps.Structured {
		log.Info().Str("model", a.provider.Model()).Msg("provider only summarizes, combining summary with heuristic analysis")
		summary, err := a.provider.Complete(ctx, summaryRequest(ext, lim))
		if err != nil {
			return nil, "", err
		}
		c := Heuristic(ext)
		c.Summary = strings.TrimSpace(summary)
		return c, domain.ModeHeuristic, nil
	}

	mode := domain.ModeText
	req := textRequest(ext, lim)
	if useVision {
		switch {
		case !caps.Vision:
			log.Info().Msg("provider has no vision support, using text mode")
		case len(ext.Images(lim.VisionPages, lim.VisionImages)) == 0:
			log.Info().Msg("no rendered pages available, using text mode")
		default:
			vr, err := visionRequest(ext, lim)
			if err != nil {
				return nil, "", domain.ExtractionError("failed to load page images", err)
			}
			req, mode = vr, domain.ModeVision
		}
	}
	req.Temperature = analysisTemperature

	start := time.Now()
	log.Info().Str("mode", mode).Str("model", a.provider.Model()).Int("images", len(req.Images)).Msg("requesting analysis")
	answer, err := a.provider.Complete(ctx, req)
	if err != nil {
		return nil, "", err
	}
	c, err := ParseCatalog(answer)
	if err != nil {
		return nil, "", err
	}
	if len(c.Products) == 0 {
		return nil, "", domain.ProviderError("response contained no products", nil)
	}
	reconcileImages(c, ext)
	log.Info().Int("products", len(c.Products)).Dur("duration", time.Since(start)).Msg("analysis complete")
	return c, mode, nil
}

func (a *Analyzer) finish(c *domain.Catalog, ext *domain.Extraction, mode, provider string) *domain.Catalog {
	c.Meta = &domain.ConversionMeta{
		SourceFile:       ext.Document.SourceFile,
		Pages:            ext.Document.TotalPages,
		DetectedLanguage: ext.Document.DetectedLanguage,
		Provider:         provider,
		Mode:             mode,
		GeneratedAt:      a.now().UTC(),
	}
	return c
}

// reconcileImages keeps only image references that point at rendered pages.
// A single product without references gets every rendered page.
func reconcileImages(c *domain.Catalog, ext *domain.Extraction) {
	rendered := make(map[string]bool)
	var all []string
	for _, page := range ext.Pages {
		if page.Image != nil && page.Image.ImagePath != "" {
			ref := domain.ImageRef(page.PageNumber)
			rendered[ref] = true
			all = append(all, ref)
		}
	}
	for i := range c.Products {
		p := &c.Products[i]
		var kept []string
		for _, ref := range p.Images {
			if rendered[ref] {
				kept = appendUnique(kept, ref)
			}
		}
		p.Images = kept
	}
	if len(c.Products) == 1 && len(c.Products[0].Images) == 0 {
		c.Products[0].Images = all
	}
	for i := range c.Products {
		if n := len(c.Products[i].Images); n > 0 {
			c.Products[i].ImagesCount = n
		}
	}
}

package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

const (
	defaultSuffix  = "_shopping_card.html"
	maxBaseNameLen = 100
)

// Options controls one conversion
type Options struct {
	UseAI      bool
	UseVision  bool
	Language   domain.Language
	OutputPath string // empty selects <output dir>/<name>_shopping_card.html
	SaveJSON   bool
	SaveImages bool
	Markdown   bool
	Provider   string // explicit provider name, empty to auto-detect
	Fallback   bool
}

// DefaultOptions mirrors the CLI defaults
func DefaultOptions() Options {
	return Options{
		UseAI:      true,
		UseVision:  true,
		Language:   domain.LanguageEnglish,
		SaveJSON:   true,
		SaveImages: true,
		Fallback:   true,
	}
}

// Result describes a finished conversion
type Result struct {
	RunID     string
	Catalog   *domain.Catalog
	Artifacts *domain.Artifacts
	Duration  time.Duration
}

// CompletePayload is the payload of the EventComplete event
type CompletePayload struct {
	HTMLPath string
	Products int
	Mode     string
	Provider string
	Duration time.Duration
}

// Service orchestrates extraction, analysis, translation and rendering
type Service struct {
	extractor  domain.Extractor
	analyzer   domain.Analyzer
	translator domain.Translator
	generator  domain.Generator
	outputDir  string
	log        *observability.Logger
}

// NewService creates a conversion service. translator may be nil.
func NewService(extractor domain.Extractor, analyzer domain.Analyzer, translator domain.Translator, generator domain.Generator, outputDir string, log *observability.Logger) *Service {
	if log == nil {
		log = observability.Nop()
	}
	return &Service{
		extractor:  extractor,
		analyzer:   analyzer,
		translator: translator,
		generator:  generator,
		outputDir:  outputDir,
		log:        log.WithOperation("convert"),
	}
}

// Convert runs one conversion. Events are sent to eventCh when it is non-nil;
// a full channel drops progress events rather than blocking the conversion,
// but the final complete or error event waits for the reader. Nothing is
// written to the output location before extraction and analysis succeed.
func (s *Service) Convert(ctx context.Context, pdfPath string, opts Options, eventCh chan<- domain.StreamEvent) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	ctx = observability.ContextWithRunID(ctx, runID)
	log := s.log.WithContext(ctx)

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Starting conversion of %s", filepath.Base(pdfPath)),
		Timestamp: time.Now(),
	})
	log.Info().Str("pdf", pdfPath).Bool("ai", opts.UseAI).Bool("vision", opts.UseVision && opts.UseAI).Str("language", string(opts.Language)).Msg("conversion started")

	defer func() {
		if err := s.extractor.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("failed to remove work directory")
		}
	}()

	ext, err := s.extractor.Extract(ctx, pdfPath, func(done, total int) {
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageComplete,
			PageNumber: done,
			TotalPages: total,
			Timestamp:  time.Now(),
		})
	})
	if err != nil {
		s.emitError(ctx, eventCh, err)
		return nil, err
	}
	log.Info().Int("pages", len(ext.Pages)).Str("detected_language", string(ext.Document.DetectedLanguage)).Msg("extraction complete")

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventAnalyzing,
		TotalPages: len(ext.Pages),
		Payload:    "Analyzing catalog",
		Timestamp:  time.Now(),
	})
	catalog, err := s.analyzer.Analyze(ctx, ext, domain.AnalyzeOptions{
		UseAI:     opts.UseAI,
		UseVision: opts.UseVision,
		Language:  opts.Language,
	})
	if err != nil {
		s.emitError(ctx, eventCh, err)
		return nil, err
	}
	if catalog.Meta == nil {
		catalog.Meta = &domain.ConversionMeta{SourceFile: ext.Document.SourceFile, Pages: len(ext.Pages)}
	}
	catalog.Meta.RunID = runID
	if catalog.Meta.Mode == domain.ModeHeuristic && catalog.Meta.Provider == "" && opts.UseAI {
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:      domain.EventWarning,
			Payload:   "AI analysis unavailable, used rule-based analysis",
			Timestamp: time.Now(),
		})
	}

	lang := opts.Language
	if lang == "" {
		lang = domain.LanguageEnglish
	}
	switch {
	case lang == domain.LanguageEnglish || s.translator == nil:
		catalog.SetLanguage(lang)
	case !opts.UseAI:
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:      domain.EventWarning,
			Payload:   fmt.Sprintf("AI disabled, catalog values are not translated to %s", lang),
			Timestamp: time.Now(),
		})
		catalog.SetLanguage(lang)
	default:
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:      domain.EventTranslating,
			Payload:   fmt.Sprintf("Translating to %s", lang),
			Timestamp: time.Now(),
		})
		catalog, err = s.translator.Translate(ctx, catalog, lang)
		if err != nil {
			s.emitError(ctx, eventCh, err)
			return nil, err
		}
	}

	htmlPath := opts.OutputPath
	if htmlPath == "" {
		htmlPath = DefaultOutputPath(s.outputDir, pdfPath)
	}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventRendering,
		Payload:   fmt.Sprintf("Writing %s", htmlPath),
		Timestamp: time.Now(),
	})
	artifacts, err := s.generator.Generate(ctx, catalog, ext, domain.GenerateRequest{
		HTMLPath:   htmlPath,
		Language:   lang,
		SaveJSON:   opts.SaveJSON,
		SaveImages: opts.SaveImages,
		Markdown:   opts.Markdown,
	})
	if err != nil {
		s.emitError(ctx, eventCh, err)
		return nil, err
	}

	duration := time.Since(startTime)
	s.emitFinal(ctx, eventCh, domain.StreamEvent{
		Type: domain.EventComplete,
		Payload: CompletePayload{
			HTMLPath: artifacts.HTMLPath,
			Products: len(catalog.Products),
			Mode:     catalog.Meta.Mode,
			Provider: catalog.Meta.Provider,
			Duration: duration,
		},
		Timestamp: time.Now(),
	})
	log.Info().Str("html", artifacts.HTMLPath).Int("products", len(catalog.Products)).Dur("duration", duration).Msg("conversion complete")

	return &Result{RunID: runID, Catalog: catalog, Artifacts: artifacts, Duration: duration}, nil
}

// DefaultOutputPath derives <dir>/<sanitized name>_shopping_card.html from
// the PDF file name
func DefaultOutputPath(dir, pdfPath string) string {
	return filepath.Join(dir, SanitizeBaseName(pdfPath)+defaultSuffix)
}

// SanitizeBaseName keeps letters, digits, spaces, '-' and '_' of the file
// stem, trimmed and capped at 100 characters
func SanitizeBaseName(pdfPath string) string {
	base := filepath.Base(pdfPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	name := []rune(strings.TrimSpace(b.String()))
	if len(name) > maxBaseNameLen {
		name = name[:maxBaseNameLen]
	}
	if len(name) == 0 {
		return "catalog"
	}
	return string(name)
}

// emitEvent safely emits an event to the channel
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh != nil {
		select {
		case eventCh <- event:
		default:
			s.log.Warn().Str("event", string(event.Type)).Msg("event channel full, dropping event")
		}
	}
}

// emitFinal delivers the terminal event of a run. Unlike progress events it
// waits for room in the channel, giving up only when ctx is done.
func (s *Service) emitFinal(ctx context.Context, eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh == nil {
		return
	}
	select {
	case eventCh <- event:
	case <-ctx.Done():
		s.log.Warn().Str("event", string(event.Type)).Msg("context done before final event was delivered")
	}
}

// emitError emits an error event
func (s *Service) emitError(ctx context.Context, eventCh chan<- domain.StreamEvent, err error) {
	s.emitFinal(ctx, eventCh, domain.StreamEvent{
		Type:      domain.EventError,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}

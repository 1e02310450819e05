// Package shopcard converts product catalog PDFs into HTML shopping cards.
package shopcard

import (
	"context"
	"os"

	"github.com/spherical/shopcard/internal/config"
	"github.com/spherical/shopcard/internal/convert"
	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

// Re-export public types
type (
	StreamEvent     = domain.StreamEvent
	EventType       = domain.EventType
	Catalog         = domain.Catalog
	Product         = domain.Product
	Language        = domain.Language
	Artifacts       = domain.Artifacts
	Options         = convert.Options
	Result          = convert.Result
	CompletePayload = convert.CompletePayload
	Config          = config.Config
)

// Event type constants
const (
	EventStart        = domain.EventStart
	EventPageComplete = domain.EventPageComplete
	EventAnalyzing    = domain.EventAnalyzing
	EventTranslating  = domain.EventTranslating
	EventRendering    = domain.EventRendering
	EventWarning      = domain.EventWarning
	EventError        = domain.EventError
	EventComplete     = domain.EventComplete
)

// Languages
const (
	English = domain.LanguageEnglish
	Persian = domain.LanguagePersian
	Chinese = domain.LanguageChinese
)

// DefaultOptions returns the options used by the CLI when no flags are given
func DefaultOptions() Options {
	return convert.DefaultOptions()
}

// Client is the main entry point for the shopcard library
type Client struct {
	cfg *config.Config
	log *observability.Logger
}

// NewClient creates a client from .env, environment variables and defaults
func NewClient() (*Client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with explicit configuration
func NewClientWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("invalid configuration", err)
	}
	log := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	return &Client{cfg: cfg, log: log}, nil
}

// Convert runs a conversion and waits for it to finish
func (c *Client) Convert(ctx context.Context, pdfPath string, opts Options) (*Result, error) {
	p, err := convert.Build(ctx, c.cfg, opts, os.Getenv, c.log)
	if err != nil {
		return nil, err
	}
	defer func() { _ = p.Close() }()
	return p.Convert(ctx, pdfPath, opts, nil)
}

// Process runs a conversion in the background. The returned channel streams
// events and is closed when the conversion ends; the final event is either
// EventComplete or EventError. Progress events may be dropped when the reader
// falls behind, the final one is not. Callers must drain the channel or
// cancel ctx.
func (c *Client) Process(ctx context.Context, pdfPath string, opts Options) (<-chan StreamEvent, error) {
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		return nil, domain.ValidationError("PDF file not found", err)
	}
	p, err := convert.Build(ctx, c.cfg, opts, os.Getenv, c.log)
	if err != nil {
		return nil, err
	}

	eventCh := make(chan StreamEvent, 100)
	go func() {
		defer close(eventCh)
		defer func() { _ = p.Close() }()
		_, _ = p.Convert(ctx, pdfPath, opts, eventCh)
	}()
	return eventCh, nil
}

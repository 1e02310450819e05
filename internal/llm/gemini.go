package llm

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider calls the Gemini API with an API key through langchaingo
type GeminiProvider struct {
	llm   llms.Model
	model string
	log   *observability.Logger
}

// NewGeminiProvider creates a Gemini provider authenticated by API key
func NewGeminiProvider(ctx context.Context, s Settings, log *observability.Logger) (*GeminiProvider, error) {
	if s.APIKey == "" {
		return nil, domain.ConfigError("google requires an API key", nil)
	}
	model := s.Model
	if model == "" {
		model = defaultGeminiModel
	}
	model = strings.TrimPrefix(model, "models/")

	client, err := googleai.New(ctx,
		googleai.WithAPIKey(s.APIKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, domain.ConfigError("create gemini client", err)
	}
	return newGeminiProvider(client, model, log), nil
}

func newGeminiProvider(m llms.Model, model string, log *observability.Logger) *GeminiProvider {
	if log == nil {
		log = observability.Nop()
	}
	return &GeminiProvider{llm: m, model: model, log: log.WithProvider(ProviderGoogle)}
}

func (p *GeminiProvider) Name() string  { return ProviderGoogle }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Capabilities() Capabilities {
	return Capabilities{Vision: true, Structured: true}
}

// Complete sends the system instruction and a single user turn with inline images
func (p *GeminiProvider) Complete(ctx context.Context, r Request) (string, error) {
	resp, err := p.llm.GenerateContent(ctx, chatMessages(r), callOptions(r)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.ProviderError("gemini generate content failed", err)
	}
	return firstChoice(ProviderGoogle, resp)
}

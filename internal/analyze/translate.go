package analyze

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/llm"
	"github.com/spherical/shopcard/internal/observability"
)

const translateSystemPrompt = "You are a professional translator for e-commerce product catalogs. Return ONLY valid JSON with no markdown formatting."

var languageNames = map[domain.Language]string{
	domain.LanguagePersian: "Persian (Farsi)",
	domain.LanguageChinese: "Simplified Chinese",
}

// Translator implements domain.Translator with the active provider
type Translator struct {
	provider  llm.Provider
	maxTokens int
	log       *observability.Logger
}

// NewTranslator creates a translator; provider may be nil
func NewTranslator(provider llm.Provider, maxTokens int, log *observability.Logger) *Translator {
	if log == nil {
		log = observability.Nop()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultLimits().MaxTokens
	}
	return &Translator{provider: provider, maxTokens: maxTokens, log: log.WithOperation("translate")}
}

// Translate rewrites the catalog values into lang. JSON keys, model numbers
// and contact details are left untouched. When translation is impossible the
// original values are kept; the language and direction are set either way.
func (t *Translator) Translate(ctx context.Context, c *domain.Catalog, lang domain.Language) (*domain.Catalog, error) {
	if c == nil {
		return nil, domain.OutputError("nothing to translate", nil)
	}
	name, ok := languageNames[lang]
	if !ok {
		c.SetLanguage(lang)
		return c, nil
	}
	log := t.log.WithContext(ctx)

	if t.provider == nil || !t.provider.Capabilities().Structured {
		log.Warn().Str("language", string(lang)).Msg("no provider able to translate, keeping original text")
		c.SetLanguage(lang)
		return c, nil
	}

	translated, err := t.translate(ctx, c, name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("language", string(lang)).Msg("translation failed, keeping original text")
		c.SetLanguage(lang)
		return c, nil
	}
	translated.SetLanguage(lang)
	return translated, nil
}

func (t *Translator) translate(ctx context.Context, c *domain.Catalog, languageName string) (*domain.Catalog, error) {
	src := *c
	src.Meta = nil
	body, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Translate all text values in the following JSON to %s.
Rules:
- Keep every JSON key in English
- Keep model numbers, URLs, emails, phone numbers and numeric values unchanged
- Keep the same structure and the same number of products
- Return ONLY valid JSON

JSON:
%s`, languageName, body)

	answer, err := t.provider.Complete(ctx, llm.Request{
		System:      translateSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   t.maxTokens,
		Temperature: analysisTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}
	out, err := ParseCatalog(answer)
	if err != nil {
		return nil, err
	}
	if len(out.Products) != len(c.Products) {
		return nil, domain.ProviderError(fmt.Sprintf("translation returned %d products, expected %d", len(out.Products), len(c.Products)), nil)
	}

	for i := range out.Products {
		orig := c.Products[i]
		p := &out.Products[i]
		p.Model = orig.Model
		p.Images = orig.Images
		p.ImagesCount = orig.ImagesCount
		if orig.Pricing != nil {
			if p.Pricing == nil {
				p.Pricing = &domain.Pricing{}
			}
			p.Pricing.Price = orig.Pricing.Price
			p.Pricing.Currency = orig.Pricing.Currency
		}
	}
	if c.Company != nil {
		company := *c.Company
		if out.Company != nil && out.Company.Name != "" {
			company.Name = out.Company.Name
		}
		out.Company = &company
	}
	out.Meta = c.Meta
	return out, nil
}

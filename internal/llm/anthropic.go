package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicProvider calls Claude through the Messages API
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	log    *observability.Logger
}

// NewAnthropicProvider creates a Claude provider
func NewAnthropicProvider(s Settings, log *observability.Logger) (*AnthropicProvider, error) {
	if s.APIKey == "" {
		return nil, domain.ConfigError("anthropic requires an API key", nil)
	}
	if log == nil {
		log = observability.Nop()
	}
	model := s.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(maxRetries),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(s.BaseURL, "/")))
	}
	if s.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(s.Timeout))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
		log:    log.WithProvider(ProviderAnthropic),
	}, nil
}

func (p *AnthropicProvider) Name() string  { return ProviderAnthropic }
func (p *AnthropicProvider) Model() string { return p.model }

func (p *AnthropicProvider) Capabilities() Capabilities {
	return Capabilities{Vision: true, Structured: true}
}

// Complete sends images first, then the prompt, as one user message
func (p *AnthropicProvider) Complete(ctx context.Context, r Request) (string, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(r.Images)+1)
	for _, img := range r.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(
			img.MIMEType,
			base64.StdEncoding.EncodeToString(img.Data),
		))
	}
	blocks = append(blocks, anthropic.NewTextBlock(r.Prompt))

	maxTokens := r.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			{
				Role:    anthropic.MessageParamRoleUser,
				Content: blocks,
			},
		},
		Temperature: anthropic.Float(r.Temperature),
	}
	if r.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.System}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classify(ProviderAnthropic, apiErr.StatusCode, apiErr.Error())
		}
		return "", domain.ProviderError("anthropic request failed", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}

	if text.Len() == 0 {
		return "", domain.ProviderError(fmt.Sprintf("anthropic returned no text (stop reason %s)", message.StopReason), nil)
	}
	p.log.Debug().
		Int64("input_tokens", message.Usage.InputTokens).
		Int64("output_tokens", message.Usage.OutputTokens).
		Msg("claude response received")
	return text.String(), nil
}

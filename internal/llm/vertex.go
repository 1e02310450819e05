package llm

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

const (
	defaultVertexModel  = "gemini-1.5-flash-002"
	defaultVertexRegion = "us-central1"
)

// VertexProvider calls Gemini through Vertex AI with application default credentials
type VertexProvider struct {
	client *genai.Client
	model  string
	log    *observability.Logger
}

// NewVertexProvider connects to Vertex AI in the configured project and region
func NewVertexProvider(ctx context.Context, s Settings, log *observability.Logger) (*VertexProvider, error) {
	if s.Project == "" {
		return nil, domain.ConfigError("vertex requires GOOGLE_CLOUD_PROJECT", nil)
	}
	if log == nil {
		log = observability.Nop()
	}
	region := s.Region
	if region == "" {
		region = defaultVertexRegion
	}
	model := s.Model
	if model == "" {
		model = defaultVertexModel
	}

	client, err := genai.NewClient(ctx, s.Project, region)
	if err != nil {
		return nil, domain.ConfigError("genai.NewClient", err)
	}

	return &VertexProvider{
		client: client,
		model:  model,
		log:    log.WithProvider(ProviderVertex),
	}, nil
}

func (p *VertexProvider) Name() string  { return ProviderVertex }
func (p *VertexProvider) Model() string { return p.model }

func (p *VertexProvider) Capabilities() Capabilities {
	return Capabilities{Vision: true, Structured: true}
}

// Complete builds a model for the request and collects the text parts of the first candidate
func (p *VertexProvider) Complete(ctx context.Context, r Request) (string, error) {
	model := p.client.GenerativeModel(p.model)
	configureVertexModel(model, r)

	resp, err := model.GenerateContent(ctx, vertexParts(r)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.ProviderError("vertex generate content failed", err)
	}
	return vertexText(resp)
}

func configureVertexModel(model *genai.GenerativeModel, r Request) {
	if r.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(r.System)},
		}
	}
	model.SetTemperature(float32(r.Temperature))
	if r.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(r.MaxTokens))
	}
	if r.JSON {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}
}

// vertexParts puts the prompt first, then one blob per image
func vertexParts(r Request) []genai.Part {
	parts := []genai.Part{genai.Text(r.Prompt)}
	for _, img := range r.Images {
		parts = append(parts, genai.ImageData(strings.TrimPrefix(img.MIMEType, "image/"), img.Data))
	}
	return parts
}

func vertexText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", domain.ProviderError("vertex returned no candidates", nil)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", domain.ProviderError(fmt.Sprintf("vertex returned no text (finish reason %v)", resp.Candidates[0].FinishReason), nil)
	}
	return text.String(), nil
}

// Close releases the Vertex AI client
func (p *VertexProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

const (
	defaultOllamaHost  = "http://localhost:11434"
	defaultOllamaModel = "llava"
)

// OllamaProvider runs a local multimodal model through langchaingo
type OllamaProvider struct {
	llm   llms.Model
	model string
	log   *observability.Logger
}

// NewOllamaProvider creates a provider for a local Ollama server
func NewOllamaProvider(s Settings, log *observability.Logger) (*OllamaProvider, error) {
	if log == nil {
		log = observability.Nop()
	}
	host := s.BaseURL
	if host == "" {
		host = defaultOllamaHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	model := s.Model
	if model == "" {
		model = defaultOllamaModel
	}

	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(host),
	)
	if err != nil {
		return nil, domain.ConfigError("create ollama client", err)
	}

	return &OllamaProvider{llm: llm, model: model, log: log.WithProvider(ProviderOllama)}, nil
}

func (p *OllamaProvider) Name() string  { return ProviderOllama }
func (p *OllamaProvider) Model() string { return p.model }

func (p *OllamaProvider) Capabilities() Capabilities {
	return Capabilities{Vision: true, Structured: true}
}

// Complete sends the system prompt and a human turn with text and binary image parts
func (p *OllamaProvider) Complete(ctx context.Context, r Request) (string, error) {
	completion, err := p.generate(ctx, chatMessages(r), callOptions(r))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.ProviderError("ollama generate failed", err)
	}
	return firstChoice(ProviderOllama, completion)
}

// generate calls the model, converting a panic inside the client into a
// provider error. The client dereferences a missing message when the server
// answers with an empty body.
func (p *OllamaProvider) generate(ctx context.Context, messages []llms.MessageContent, opts []llms.CallOption) (resp *llms.ContentResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("ollama client panicked: %v", r)
		}
	}()
	return p.llm.GenerateContent(ctx, messages, opts...)
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

// candidate is a provider that may be selected from the environment
type candidate struct {
	name  string
	env   string
	valid func(v string) bool
}

// detectionOrder is the precedence used when no provider is named explicitly
var detectionOrder = []candidate{
	{ProviderDeepSeek, "DEEPSEEK_API_KEY", func(v string) bool { return strings.HasPrefix(v, "sk-") }},
	{ProviderAnthropic, "ANTHROPIC_API_KEY", func(v string) bool { return strings.HasPrefix(v, "sk-ant-") }},
	{ProviderHuggingFace, "HUGGINGFACE_API_KEY", func(v string) bool { return strings.HasPrefix(v, "hf_") || len(v) > 20 }},
	{ProviderGoogle, "GOOGLE_API_KEY", func(v string) bool { return len(v) > 20 }},
	{ProviderOpenAI, "OPENAI_API_KEY", func(v string) bool { return strings.HasPrefix(v, "sk-") && len(v) > 20 }},
	{ProviderOpenRouter, "OPENROUTER_API_KEY", func(v string) bool { return v != "" }},
	{ProviderVertex, "GOOGLE_CLOUD_PROJECT", func(v string) bool { return v != "" }},
	{ProviderOllama, "OLLAMA_HOST", func(v string) bool { return v != "" }},
}

// Names lists every provider name in detection order
func Names() []string {
	names := make([]string, len(detectionOrder))
	for i, c := range detectionOrder {
		names[i] = c.name
	}
	return names
}

// Status reports whether a provider is configured in the environment
type Status struct {
	Name       string
	EnvVar     string
	Configured bool
	Vision     bool
	Structured bool
}

// Statuses returns the configuration status of every provider in detection order
func Statuses(getenv func(string) string) []Status {
	out := make([]Status, 0, len(detectionOrder))
	for _, c := range detectionOrder {
		v := strings.TrimSpace(getenv(c.env))
		caps := capabilitiesOf(c.name)
		out = append(out, Status{
			Name:       c.name,
			EnvVar:     c.env,
			Configured: v != "" && c.valid(v),
			Vision:     caps.Vision,
			Structured: caps.Structured,
		})
	}
	return out
}

func capabilitiesOf(name string) Capabilities {
	switch name {
	case ProviderDeepSeek:
		return Capabilities{Vision: false, Structured: true}
	case ProviderHuggingFace:
		return Capabilities{}
	default:
		return Capabilities{Vision: true, Structured: true}
	}
}

// Detect picks provider settings. An explicit name wins over detection; an
// explicit name without credentials is a config error. ok is false when the
// environment configures no provider at all.
func Detect(getenv func(string) string, explicit, model string, timeout time.Duration) (s Settings, ok bool, err error) {
	explicit = strings.ToLower(strings.TrimSpace(explicit))

	for _, c := range detectionOrder {
		if explicit != "" && c.name != explicit {
			continue
		}
		v := strings.TrimSpace(getenv(c.env))
		if explicit == "" && (v == "" || !c.valid(v)) {
			continue
		}
		if explicit != "" && v == "" && c.name != ProviderOllama {
			return Settings{}, false, domain.ConfigError(fmt.Sprintf("provider %s selected but %s is not set", c.name, c.env), nil)
		}
		return settingsFor(c, v, getenv, model, timeout), true, nil
	}

	if explicit != "" {
		return Settings{}, false, domain.ConfigError(fmt.Sprintf("unknown provider %q (known: %s)", explicit, strings.Join(Names(), ", ")), nil)
	}
	return Settings{}, false, nil
}

func settingsFor(c candidate, v string, getenv func(string) string, model string, timeout time.Duration) Settings {
	s := Settings{Name: c.name, Model: model, Timeout: timeout}
	switch c.name {
	case ProviderVertex:
		s.Project = v
		s.Region = getenv("VERTEX_AI_REGION")
	case ProviderOllama:
		s.BaseURL = v
	default:
		s.APIKey = v
	}
	return s
}

// New constructs the provider described by s
func New(ctx context.Context, s Settings, log *observability.Logger) (Provider, error) {
	switch s.Name {
	case ProviderOpenAI, ProviderDeepSeek, ProviderOpenRouter:
		return NewClient(s, log)
	case ProviderAnthropic:
		return NewAnthropicProvider(s, log)
	case ProviderGoogle:
		return NewGeminiProvider(ctx, s, log)
	case ProviderVertex:
		return NewVertexProvider(ctx, s, log)
	case ProviderOllama:
		return NewOllamaProvider(s, log)
	case ProviderHuggingFace:
		return NewHuggingFaceProvider(s, log)
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown provider %q", s.Name), nil)
	}
}

// Package llm talks to the AI providers that interpret catalog content.
package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spherical/shopcard/internal/domain"
)

// Provider names accepted by --provider and the analysis.provider setting
const (
	ProviderOpenAI      = "openai"
	ProviderDeepSeek    = "deepseek"
	ProviderOpenRouter  = "openrouter"
	ProviderAnthropic   = "anthropic"
	ProviderGoogle      = "google"
	ProviderVertex      = "vertex"
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
)

// Capabilities describes what a provider can be asked to do
type Capabilities struct {
	// Vision providers accept page images alongside text
	Vision bool
	// Structured providers follow a JSON response format; the others only summarize
	Structured bool
}

// Image is an encoded page image attached to a request
type Image struct {
	Page     int
	MIMEType string
	Data     []byte
}

// Request is a single completion request
type Request struct {
	System      string
	Prompt      string
	Images      []Image
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a JSON object when it supports a response format
	JSON bool
}

// Provider is a remote or local model able to complete a request
type Provider interface {
	Name() string
	Model() string
	Capabilities() Capabilities
	Complete(ctx context.Context, req Request) (string, error)
}

// Settings selects and configures a provider
type Settings struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string // overrides the provider endpoint; used by tests and proxies
	Project string // Vertex AI project
	Region  string // Vertex AI region
	Timeout time.Duration
}

// LoadImages reads rendered page images from disk
func LoadImages(pages []domain.PageImage) ([]Image, error) {
	images := make([]Image, 0, len(pages))
	for _, p := range pages {
		data, err := os.ReadFile(p.ImagePath)
		if err != nil {
			return nil, domain.ExtractionError(fmt.Sprintf("failed to read image of page %d", p.PageNumber), err)
		}
		mime := p.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		images = append(images, Image{Page: p.PageNumber, MIMEType: mime, Data: data})
	}
	return images, nil
}

// classify turns an HTTP status from a provider into a provider error
func classify(name string, status int, body string) error {
	if len(body) > 500 {
		body = body[:500] + "..."
	}
	var msg string
	switch {
	case status == 401 || status == 403:
		msg = fmt.Sprintf("%s rejected the API key (HTTP %d)", name, status)
	case status == 429:
		msg = fmt.Sprintf("%s rate limit exceeded", name)
	default:
		msg = fmt.Sprintf("%s returned HTTP %d", name, status)
	}
	if body != "" {
		msg += ": " + body
	}
	return domain.ProviderError(msg, nil)
}

package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

// chat completion endpoints and default models of the OpenAI-compatible providers
var chatEndpoints = map[string]struct {
	url    string
	model  string
	vision bool
}{
	ProviderOpenAI:     {"https://api.openai.com/v1/chat/completions", "gpt-4o", true},
	ProviderDeepSeek:   {"https://api.deepseek.com/v1/chat/completions", "deepseek-chat", false},
	ProviderOpenRouter: {"https://openrouter.ai/api/v1/chat/completions", "google/gemini-2.5-flash-preview-09-2025", true},
}

// Client handles OpenAI-compatible chat completion APIs (OpenAI, DeepSeek, OpenRouter)
type Client struct {
	name       string
	apiKey     string
	model      string
	url        string
	vision     bool
	httpClient *http.Client
	retry      RetryConfig
	log        *observability.Logger
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ChatRequest represents the API request structure
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat asks for a JSON object answer
type ResponseFormat struct {
	Type string `json:"type"`
}

// NewClient creates a chat completion client for one of the OpenAI-compatible providers
func NewClient(s Settings, log *observability.Logger) (*Client, error) {
	ep, ok := chatEndpoints[s.Name]
	if !ok {
		return nil, domain.ConfigError(fmt.Sprintf("%s is not an OpenAI-compatible provider", s.Name), nil)
	}
	if s.APIKey == "" {
		return nil, domain.ConfigError(fmt.Sprintf("%s requires an API key", s.Name), nil)
	}
	if log == nil {
		log = observability.Nop()
	}

	model := s.Model
	if model == "" {
		model = ep.model
	}
	url := ep.url
	if s.BaseURL != "" {
		url = strings.TrimRight(s.BaseURL, "/") + "/chat/completions"
	}

	return &Client{
		name:       s.Name,
		apiKey:     s.APIKey,
		model:      model,
		url:        url,
		vision:     ep.vision,
		httpClient: &http.Client{Timeout: s.Timeout},
		retry:      DefaultRetryConfig(),
		log:        log.WithProvider(s.Name),
	}, nil
}

func (c *Client) Name() string  { return c.name }
func (c *Client) Model() string { return c.model }

func (c *Client) Capabilities() Capabilities {
	return Capabilities{Vision: c.vision, Structured: true}
}

// Complete sends the request and collects the streamed answer
func (c *Client) Complete(ctx context.Context, r Request) (string, error) {
	body, err := json.Marshal(c.buildRequest(r))
	if err != nil {
		return "", domain.ProviderError("failed to marshal request", err)
	}

	resp, err := retryWithBackoff(ctx, c.retry, c.log, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if c.name == ProviderOpenRouter {
			req.Header.Set("HTTP-Referer", "https://github.com/spherical/shopcard")
			req.Header.Set("X-Title", "Shopcard Catalog Converter")
		}

		return c.httpClient.Do(req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.ProviderError(fmt.Sprintf("%s request failed", c.name), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", classify(c.name, resp.StatusCode, string(bodyBytes))
	}

	text, apiErr, err := NewStreamParser(resp.Body).Collect()
	if err != nil {
		return "", domain.ProviderError("failed to parse stream", err)
	}
	if apiErr != nil {
		return "", domain.ProviderError(fmt.Sprintf("%s error: %s", c.name, apiErr.Message), nil)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ProviderError(fmt.Sprintf("%s returned an empty answer", c.name), nil)
	}
	return text, nil
}

// buildRequest constructs the chat payload; images become base64 data URLs
func (c *Client) buildRequest(r Request) *ChatRequest {
	var messages []Message
	if r.System != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: []ContentPart{{Type: "text", Text: r.System}},
		})
	}

	parts := []ContentPart{{Type: "text", Text: r.Prompt}}
	if c.vision {
		for _, img := range r.Images {
			parts = append(parts, ContentPart{
				Type: "image_url",
				ImageURL: &ImageURL{
					URL:    "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
					Detail: "high",
				},
			})
		}
	}
	messages = append(messages, Message{Role: "user", Content: parts})

	req := &ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      true,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	}
	if r.JSON && c.name != ProviderOpenRouter {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	return req
}

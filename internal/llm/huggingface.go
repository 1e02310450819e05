package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

const (
	huggingFaceBaseURL      = "https://api-inference.huggingface.co/models"
	defaultHuggingFaceModel = "facebook/bart-large-cnn"
	huggingFaceInputLimit   = 10000
)

// HuggingFaceProvider uses the free inference API to summarize catalog text.
// Summaries are not structured, so the analyzer pairs them with heuristics.
type HuggingFaceProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	log        *observability.Logger
}

// NewHuggingFaceProvider creates a summarization provider
func NewHuggingFaceProvider(s Settings, log *observability.Logger) (*HuggingFaceProvider, error) {
	if s.APIKey == "" {
		return nil, domain.ConfigError("huggingface requires an API key", nil)
	}
	if log == nil {
		log = observability.Nop()
	}
	model := s.Model
	if model == "" {
		model = defaultHuggingFaceModel
	}
	base := huggingFaceBaseURL
	if s.BaseURL != "" {
		base = strings.TrimRight(s.BaseURL, "/")
	}
	return &HuggingFaceProvider{
		apiKey:     s.APIKey,
		model:      model,
		baseURL:    base,
		httpClient: &http.Client{Timeout: s.Timeout},
		retry:      DefaultRetryConfig(),
		log:        log.WithProvider(ProviderHuggingFace),
	}, nil
}

func (p *HuggingFaceProvider) Name() string  { return ProviderHuggingFace }
func (p *HuggingFaceProvider) Model() string { return p.model }

func (p *HuggingFaceProvider) Capabilities() Capabilities {
	return Capabilities{Vision: false, Structured: false}
}

// Complete posts the prompt as summarization input and returns the summary text
func (p *HuggingFaceProvider) Complete(ctx context.Context, r Request) (string, error) {
	input := r.Prompt
	if runes := []rune(input); len(runes) > huggingFaceInputLimit {
		input = string(runes[:huggingFaceInputLimit])
	}
	body, err := json.Marshal(map[string]any{
		"inputs":  input,
		"options": map[string]bool{"wait_for_model": true},
	})
	if err != nil {
		return "", domain.ProviderError("failed to marshal request", err)
	}

	url := p.baseURL + "/" + p.model
	resp, err := retryWithBackoff(ctx, p.retry, p.log, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		return p.httpClient.Do(req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", domain.ProviderError("huggingface request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.ProviderError("failed to read huggingface response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classify(ProviderHuggingFace, resp.StatusCode, string(raw))
	}

	var results []struct {
		SummaryText   string `json:"summary_text"`
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &results); err != nil {
		return "", domain.ProviderError("unexpected huggingface response", err)
	}
	for _, res := range results {
		if s := strings.TrimSpace(res.SummaryText + res.GeneratedText); s != "" {
			return s, nil
		}
	}
	return "", domain.ProviderError(fmt.Sprintf("%s returned no summary", p.model), nil)
}

package llm

import (
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/spherical/shopcard/internal/domain"
)

// chatMessages turns a request into an optional system turn and one human
// turn carrying the prompt followed by the images
func chatMessages(r Request) []llms.MessageContent {
	var messages []llms.MessageContent
	if r.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, r.System))
	}

	parts := []llms.ContentPart{llms.TextPart(r.Prompt)}
	for _, img := range r.Images {
		parts = append(parts, llms.BinaryPart(img.MIMEType, img.Data))
	}
	return append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	})
}

func callOptions(r Request) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(r.Temperature)}
	if r.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(r.MaxTokens))
	}
	if r.JSON {
		opts = append(opts, llms.WithJSONMode())
	}
	return opts
}

func firstChoice(provider string, resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", domain.ProviderError(provider+" returned an empty answer", nil)
	}
	return resp.Choices[0].Content, nil
}

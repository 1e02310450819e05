package llm

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// StreamParser handles parsing of Server-Sent Events (SSE) streams
type StreamParser struct {
	scanner *bufio.Scanner
}

// NewStreamParser creates a new stream parser
func NewStreamParser(reader io.Reader) *StreamParser {
	s := bufio.NewScanner(reader)
	// large JSON answers can arrive as a single data line
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &StreamParser{scanner: s}
}

// StreamChunk represents a single chunk from the stream
type StreamChunk struct {
	Content      string
	FinishReason string
	Done         bool
	Err          *apiError
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

// Next reads the next chunk from the stream
func (p *StreamParser) Next() (*StreamChunk, error) {
	for p.scanner.Scan() {
		line := strings.TrimSpace(p.scanner.Text())

		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)

		if data == "[DONE]" {
			return &StreamChunk{Done: true}, nil
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if chunk.Error != nil {
			return &StreamChunk{Done: true, Err: chunk.Error}, nil
		}

		if len(chunk.Choices) > 0 {
			choice := chunk.Choices[0]
			content := choice.Delta.Content
			if content == "" {
				content = choice.Message.Content
			}
			return &StreamChunk{
				Content:      content,
				FinishReason: choice.FinishReason,
				Done:         choice.FinishReason != "",
			}, nil
		}
	}

	if err := p.scanner.Err(); err != nil {
		return nil, err
	}

	return &StreamChunk{Done: true}, nil
}

// Collect reads the stream to its end and returns the concatenated content.
// An error object embedded in the stream is returned as a failure.
func (p *StreamParser) Collect() (string, *apiError, error) {
	var b strings.Builder
	for {
		chunk, err := p.Next()
		if err != nil {
			return b.String(), nil, err
		}
		if chunk.Err != nil {
			return b.String(), chunk.Err, nil
		}
		b.WriteString(chunk.Content)
		if chunk.Done {
			return b.String(), nil, nil
		}
	}
}

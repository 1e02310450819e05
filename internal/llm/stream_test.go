package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamParser_Next(t *testing.T) {
	input := strings.Join([]string{
		": keep-alive",
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		"",
		`data:{"choices":[{"delta":{"content":"lo"}}]}`,
		"data: not json",
		`data: {"choices":[{"delta":{"content":"!"},"finish_reason":"stop"}]}`,
		"data: [DONE]",
	}, "\n")

	p := NewStreamParser(strings.NewReader(input))

	var got []string
	for {
		chunk, err := p.Next()
		require.NoError(t, err)
		got = append(got, chunk.Content)
		if chunk.Done {
			assert.Equal(t, "stop", chunk.FinishReason)
			break
		}
	}
	assert.Equal(t, []string{"Hel", "lo", "!"}, got)
}

func TestStreamParser_CollectNonStreamingBody(t *testing.T) {
	// some gateways ignore stream=true and send one message object
	input := `data: {"choices":[{"message":{"content":"whole answer"},"finish_reason":"stop"}]}`
	text, apiErr, err := NewStreamParser(strings.NewReader(input)).Collect()
	require.NoError(t, err)
	assert.Nil(t, apiErr)
	assert.Equal(t, "whole answer", text)
}

func TestStreamParser_CollectUntilEOF(t *testing.T) {
	input := `data: {"choices":[{"delta":{"content":"a"}}]}` + "\n" + `data: {"choices":[{"delta":{"content":"b"}}]}`
	text, _, err := NewStreamParser(strings.NewReader(input)).Collect()
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestStreamParser_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	input := `data: {"choices":[{"delta":{"content":"` + long + `"},"finish_reason":"stop"}]}`
	text, _, err := NewStreamParser(strings.NewReader(input)).Collect()
	require.NoError(t, err)
	assert.Len(t, text, len(long))
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/shopcard/internal/domain"
)

func TestHuggingFaceProvider_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/facebook/bart-large-cnn", r.URL.Path)
		assert.Equal(t, "Bearer hf_key", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "catalog text", body["inputs"])
		fmt.Fprint(w, `[{"summary_text":"A range of industrial pumps."}]`)
	}))
	defer srv.Close()

	p, err := NewHuggingFaceProvider(Settings{APIKey: "hf_key", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), Request{Prompt: "catalog text"})
	require.NoError(t, err)
	assert.Equal(t, "A range of industrial pumps.", out)
}

func TestHuggingFaceProvider_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"Invalid token"}`)
	}))
	defer srv.Close()

	p, err := NewHuggingFaceProvider(Settings{APIKey: "hf_key", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeProvider))
	assert.Contains(t, err.Error(), "rejected the API key")
}

func TestAnthropicProvider_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "{\"products\": []}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(Settings{APIKey: "sk-ant-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), Request{
		System:    "sys",
		Prompt:    "analyze",
		Images:    []Image{{MIMEType: "image/jpeg", Data: []byte("jpg")}},
		MaxTokens: 2000,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"products": []}`, out)

	assert.Equal(t, float64(2000), body["max_tokens"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "image", content[0].(map[string]any)["type"])
	assert.Equal(t, "text", content[1].(map[string]any)["type"])
}

func TestAnthropicProvider_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(Settings{APIKey: "sk-ant-bad", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeProvider))
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/page_001.jpg"
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0xff}, 0o644))

	images, err := LoadImages([]domain.PageImage{{PageNumber: 1, ImagePath: path}})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "image/jpeg", images[0].MIMEType)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, images[0].Data)

	_, err = LoadImages([]domain.PageImage{{PageNumber: 2, ImagePath: dir + "/missing.jpg"}})
	assert.Error(t, err)
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/shopcard/internal/domain"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func sseHandler(t *testing.T, chunks []string, inspect func(r *http.Request, body ChatRequest)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if inspect != nil {
			inspect(r, body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		settings  Settings
		wantModel string
		wantErr   bool
	}{
		{"openai default model", Settings{Name: ProviderOpenAI, APIKey: "sk-test"}, "gpt-4o", false},
		{"deepseek default model", Settings{Name: ProviderDeepSeek, APIKey: "sk-test"}, "deepseek-chat", false},
		{"openrouter custom model", Settings{Name: ProviderOpenRouter, APIKey: "k", Model: "google/gemini-2.5-pro"}, "google/gemini-2.5-pro", false},
		{"missing key", Settings{Name: ProviderOpenAI}, "", true},
		{"not chat compatible", Settings{Name: ProviderAnthropic, APIKey: "k"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.settings, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, c.Model())
		})
	}
}

func TestClient_CompleteStreams(t *testing.T) {
	var seen ChatRequest
	var auth string
	srv := httptest.NewServer(sseHandler(t, []string{`{"product_family":`, `"Pumps"}`}, func(r *http.Request, body ChatRequest) {
		seen = body
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
	}))
	defer srv.Close()

	c, err := NewClient(Settings{Name: ProviderOpenAI, APIKey: "sk-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Request{
		System:    "be precise",
		Prompt:    "analyze",
		Images:    []Image{{Page: 1, MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
		MaxTokens: 1000,
		JSON:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"product_family":"Pumps"}`, out)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.True(t, seen.Stream)
	assert.Equal(t, 1000, seen.MaxTokens)
	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, "json_object", seen.ResponseFormat.Type)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	user := seen.Messages[1]
	require.Len(t, user.Content, 2)
	assert.Equal(t, "image_url", user.Content[1].Type)
	assert.True(t, strings.HasPrefix(user.Content[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestClient_TextOnlyProviderDropsImages(t *testing.T) {
	var parts int
	srv := httptest.NewServer(sseHandler(t, []string{"ok"}, func(_ *http.Request, body ChatRequest) {
		parts = len(body.Messages[len(body.Messages)-1].Content)
	}))
	defer srv.Close()

	c, err := NewClient(Settings{Name: ProviderDeepSeek, APIKey: "sk-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	assert.False(t, c.Capabilities().Vision)

	_, err = c.Complete(context.Background(), Request{Prompt: "x", Images: []Image{{MIMEType: "image/jpeg", Data: []byte{1}}}})
	require.NoError(t, err)
	assert.Equal(t, 1, parts)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	ok := sseHandler(t, []string{"done"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		ok(w, r)
	}))
	defer srv.Close()

	c, err := NewClient(Settings{Name: ProviderOpenRouter, APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	c.retry = fastRetry()

	out, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, "rejected the API key"},
		{"rate limited", http.StatusTooManyRequests, "slow down", "rate limit"},
		{"bad request", http.StatusBadRequest, "nope", "HTTP 400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c, err := NewClient(Settings{Name: ProviderOpenAI, APIKey: "sk-test", BaseURL: srv.URL}, nil)
			require.NoError(t, err)
			c.retry = fastRetry()

			_, err = c.Complete(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeProvider))
			assert.Contains(t, err.Error(), tt.wantMsg)
			if tt.status != http.StatusTooManyRequests {
				assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "non-retryable status is not retried")
			}
		})
	}
}

func TestClient_StreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"model overloaded\"}}\n\n")
	}))
	defer srv.Close()

	c, err := NewClient(Settings{Name: ProviderOpenRouter, APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

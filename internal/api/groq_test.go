package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/mediconnect/internal/api"
	"github.com/notexe/mediconnect/internal/config"
)

func TestGroqProvider_SendMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"Rest and hydrate."}}],"usage":{"prompt_tokens":12,"completion_tokens":4}}`))
	}))
	defer srv.Close()

	p, err := api.NewGroqProvider(config.GroqConfig{BaseURL: srv.URL + "/"}, "secret")
	require.NoError(t, err)
	defer p.Close()

	resp, err := p.SendMessage(context.Background(), api.MessageRequest{
		System:      "be careful",
		Messages:    []api.Message{{Role: "user", Content: "I have a headache"}},
		Model:       "llama-3.1-8b-instant",
		MaxTokens:   600,
		Temperature: 0.4,
	})
	require.NoError(t, err)

	assert.Equal(t, "Rest and hydrate.", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 12, resp.Usage.InputTokens)

	assert.Equal(t, "llama-3.1-8b-instant", got["model"])
	assert.InDelta(t, 0.4, got["temperature"], 1e-9)
	assert.EqualValues(t, 600, got["max_tokens"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "I have a headache", messages[1].(map[string]any)["content"])
}

func TestGroqProvider_UpstreamError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantDetails string
	}{
		{"nested message", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`, "Invalid API Key"},
		{"flat message", http.StatusTooManyRequests, `{"message":"slow down"}`, "slow down"},
		{"string error falls back to message", http.StatusServiceUnavailable, `{"error":"overloaded","message":"try again later"}`, "try again later"},
		{"nested error without message", http.StatusBadRequest, `{"error":{"type":"bad"},"message":"bad request"}`, "bad request"},
		{"no message", http.StatusBadGateway, `<html>bad gateway</html>`, "Groq API request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := api.NewGroqProvider(config.GroqConfig{BaseURL: srv.URL}, "secret")
			require.NoError(t, err)

			_, err = p.SendMessage(context.Background(), api.MessageRequest{Model: "m"})
			require.Error(t, err)

			var upstream *api.UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, tt.status, upstream.StatusCode)
			assert.Equal(t, tt.wantDetails, upstream.Details())
		})
	}
}

func TestNewGroqProvider_RequiresKey(t *testing.T) {
	_, err := api.NewGroqProvider(config.GroqConfig{}, "")
	assert.Error(t, err)
}

func TestOllamaProvider_SendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"hello"},"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":1}`))
	}))
	defer srv.Close()

	p, err := api.NewProvider(&config.ProviderConfig{
		Type:   config.ProviderOllama,
		Ollama: config.OllamaConfig{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	resp, err := p.SendMessage(context.Background(), api.MessageRequest{Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 1, resp.Usage.OutputTokens)
}

func TestOllamaProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		options, ok := got["options"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 50, options["num_predict"])

		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama9\" not found, try pulling it first"}`))
	}))
	defer srv.Close()

	p, err := api.NewOllamaProvider(config.OllamaConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = p.SendMessage(context.Background(), api.MessageRequest{Model: "llama9", MaxTokens: 50})
	var upstream *api.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
	assert.Equal(t, `model "llama9" not found, try pulling it first`, upstream.Details())
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := api.NewProvider(&config.ProviderConfig{Type: "openai"})
	assert.Error(t, err)
}

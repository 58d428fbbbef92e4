package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/notexe/mediconnect/internal/config"
)

const defaultGroqURL = "https://api.groq.com/openai/v1"

// GroqProvider implements Provider for Groq's OpenAI-compatible endpoint.
type GroqProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewGroqProvider creates a new Groq provider.
func NewGroqProvider(cfg config.GroqConfig, apiKey string) (*GroqProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Groq API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGroqURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	return &GroqProvider{
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

type groqChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type groqChatResponse struct {
	Choices []struct {
		FinishReason string  `json:"finish_reason"`
		Message      Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// SendMessage posts a chat completion to Groq.
func (p *GroqProvider) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)

	respBody, err := postJSON(ctx, p.client, ProviderGroq, p.baseURL+"/chat/completions", header, groqChatRequest{
		Model:       req.Model,
		Messages:    chatMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	// A 2xx body that is not JSON is treated as an empty completion.
	var groqResp groqChatResponse
	_ = json.Unmarshal(respBody, &groqResp)

	out := &MessageResponse{
		Usage: Usage{
			InputTokens:  groqResp.Usage.PromptTokens,
			OutputTokens: groqResp.Usage.CompletionTokens,
		},
	}
	if len(groqResp.Choices) > 0 {
		out.Content = groqResp.Choices[0].Message.Content
		out.StopReason = groqResp.Choices[0].FinishReason
	}
	return out, nil
}

// Name returns the provider name.
func (p *GroqProvider) Name() string {
	return ProviderGroq
}

// Close releases idle connections.
func (p *GroqProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

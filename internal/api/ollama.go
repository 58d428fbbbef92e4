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

const (
	defaultOllamaURL     = "http://localhost:11434"
	defaultOllamaTimeout = 120 * time.Second
)

// OllamaProvider talks to a local Ollama daemon. It needs no API key, so the
// consult proxy can run fully offline with it.
type OllamaProvider struct {
	client  *http.Client
	baseURL string
}

func NewOllamaProvider(cfg config.OllamaConfig) (*OllamaProvider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	timeout := defaultOllamaTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	return &OllamaProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}, nil
}

// Sampling knobs live under "options" in /api/chat, not at the top level.
type ollamaChat struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type ollamaReply struct {
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	DoneReason      string  `json:"done_reason"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// SendMessage runs one non-streaming /api/chat call.
func (p *OllamaProvider) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	chat := ollamaChat{Model: req.Model, Messages: chatMessages(req)}
	chat.Options.Temperature = req.Temperature
	chat.Options.NumPredict = req.MaxTokens

	body, err := postJSON(ctx, p.client, ProviderOllama, p.baseURL+"/api/chat", nil, chat)
	if err != nil {
		return nil, err
	}

	var reply ollamaReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama response: %w", err)
	}

	stop := reply.DoneReason
	if stop == "" && reply.Done {
		stop = "stop"
	}
	return &MessageResponse{
		Content:    reply.Message.Content,
		StopReason: stop,
		Usage:      Usage{InputTokens: reply.PromptEvalCount, OutputTokens: reply.EvalCount},
	}, nil
}

func (p *OllamaProvider) Name() string { return ProviderOllama }

func (p *OllamaProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

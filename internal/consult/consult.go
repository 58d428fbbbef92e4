// Package consult forwards health questions to a chat-completion provider
// and serves the result over HTTP.
package consult

import (
	"context"
	"strings"

	"github.com/notexe/mediconnect/internal/api"
	"github.com/notexe/mediconnect/internal/config"
)

// FallbackReply is returned when the provider answers with no text.
const FallbackReply = "AI response not available."

// Answer is a reply with the provider's token accounting.
type Answer struct {
	Reply string
	Usage api.Usage
}

// Ask sends one query with the configured system prompt and returns the
// trimmed reply. It never retries.
func Ask(ctx context.Context, provider api.Provider, model config.ModelConfig, query string) (string, error) {
	answer, err := AskWithUsage(ctx, provider, model, query)
	if err != nil {
		return "", err
	}
	return answer.Reply, nil
}

// AskWithUsage is Ask, also reporting token usage.
func AskWithUsage(ctx context.Context, provider api.Provider, model config.ModelConfig, query string) (*Answer, error) {
	systemPrompt := model.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}

	resp, err := provider.SendMessage(ctx, api.MessageRequest{
		System:      systemPrompt,
		Messages:    []api.Message{{Role: "user", Content: query}},
		Model:       model.Name,
		MaxTokens:   model.MaxTokens,
		Temperature: model.Temperature,
	})
	if err != nil {
		return nil, err
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		reply = FallbackReply
	}
	return &Answer{Reply: reply, Usage: resp.Usage}, nil
}

package api

import (
	"context"
	"fmt"

	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"
	"github.com/notexe/mediconnect/internal/config"
)

// DeepSeekProvider implements Provider for DeepSeek API.
type DeepSeekProvider struct {
	client deepseek.Client
	config config.DeepSeekConfig
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(cfg config.DeepSeekConfig) (*DeepSeekProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("DeepSeek API key is required")
	}

	sdkCfg := deepseek.NewConfigWithDefaults()
	sdkCfg.ApiKey = cfg.APIKey
	if cfg.Timeout > 0 {
		sdkCfg.TimeoutSeconds = cfg.Timeout
	}

	client, err := deepseek.NewClientWithConfig(sdkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DeepSeek client: %w", err)
	}

	return NewDeepSeekProviderWithClient(client, cfg), nil
}

// NewDeepSeekProviderWithClient wraps an existing SDK client, such as the
// SDK's fake callback client.
func NewDeepSeekProviderWithClient(client deepseek.Client, cfg config.DeepSeekConfig) *DeepSeekProvider {
	return &DeepSeekProvider{
		client: client,
		config: cfg,
	}
}

// SendMessage sends a message to DeepSeek API and returns the response.
func (p *DeepSeekProvider) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	messages := make([]*request.Message, 0, len(req.Messages)+1)

	if req.System != "" {
		messages = append(messages, &request.Message{
			Role:    "system",
			Content: req.System,
		})
	}

	for _, msg := range req.Messages {
		messages = append(messages, &request.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	var temp *float32
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		temp = &t
	}

	chatReq := &request.ChatCompletionsRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: temp,
		Stream:      false,
	}

	call := p.client.CallChatCompletionsChat
	if req.Model == deepseek.DEEPSEEK_REASONER_MODEL {
		call = p.client.CallChatCompletionsReasoner
	}

	resp, err := call(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("DeepSeek API request failed: %w", err)
	}

	out := &MessageResponse{}
	if resp.Usage != nil {
		out.Usage = Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	if len(resp.Choices) > 0 && resp.Choices[0] != nil {
		choice := resp.Choices[0]
		out.StopReason = choice.FinishReason
		if choice.Message != nil {
			out.Content = choice.Message.Content
		}
	}

	return out, nil
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return ProviderDeepSeek
}

// Close releases resources (no-op for DeepSeek).
func (p *DeepSeekProvider) Close() error {
	return nil
}

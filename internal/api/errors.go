package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UpstreamError is returned when the chat-completion endpoint answers with a
// non-2xx status. Transport failures are returned as plain wrapped errors.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", DisplayName(e.Provider), e.StatusCode, e.Details())
}

// Details is the best-effort upstream message, or a generic fallback.
func (e *UpstreamError) Details() string {
	if e.Message != "" {
		return e.Message
	}
	return DisplayName(e.Provider) + " API request failed"
}

// upstreamErrorBody covers both {"error":{"message":...}} and {"message":...}.
// error stays raw since some upstreams send it as a plain string.
type upstreamErrorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

func newUpstreamError(provider string, status int, body []byte) *UpstreamError {
	e := &UpstreamError{Provider: provider, StatusCode: status}

	var parsed upstreamErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return e
	}

	var nested struct {
		Message string `json:"message"`
	}
	if len(parsed.Error) > 0 && json.Unmarshal(parsed.Error, &nested) == nil && nested.Message != "" {
		e.Message = strings.TrimSpace(nested.Message)
		return e
	}
	if parsed.Message != "" {
		e.Message = strings.TrimSpace(parsed.Message)
		return e
	}

	// Ollama reports {"error":"model \"x\" not found"}.
	var text string
	if provider == ProviderOllama && json.Unmarshal(parsed.Error, &text) == nil {
		e.Message = strings.TrimSpace(text)
	}
	return e
}

// DisplayName maps a provider id to the name shown in error messages.
func DisplayName(provider string) string {
	switch provider {
	case ProviderGroq:
		return "Groq"
	case ProviderDeepSeek:
		return "DeepSeek"
	case ProviderOllama:
		return "Ollama"
	default:
		return provider
	}
}

package ai

import (
	"context"
)

// Message is one role/content turn of a chat completion
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest asks a model for one text completion
type CompletionRequest struct {
	Model       string // empty means the provider default
	Messages    []Message
	Temperature float64
}

// CompletionService is the interface for language-model completions
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type CompletionService interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

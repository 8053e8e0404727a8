package ai

import (
	"context"
	"fmt"

	"voicecmd-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	// Gemini config
	GeminiAPIKey string
	GeminiModel  string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// DynamicConfig is Config with Ollama settings read at call time, so the
// settings API can change them without a restart.
type DynamicConfig struct {
	Provider         ProviderType
	GeminiAPIKey     string
	GeminiModel      string
	GetOllamaBaseURL func() string
	GetOllamaModel   func() string
}

// geminiCompleter adapts the Gemini REST client to CompletionService
type geminiCompleter struct {
	svc *gemini.GeminiService
}

func (g *geminiCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var system string
	var contents []gemini.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case RoleAssistant:
			contents = append(contents, gemini.Content{Role: "model", Text: m.Content})
		default:
			contents = append(contents, gemini.Content{Role: "user", Text: m.Content})
		}
	}
	return g.svc.Generate(ctx, req.Model, system, contents, req.Temperature)
}

// NewGeminiCompleter wraps a Gemini client as a CompletionService
func NewGeminiCompleter(svc *gemini.GeminiService) CompletionService {
	return &geminiCompleter{svc: svc}
}

// NewCompletionService creates a CompletionService based on the config
// This is the factory function - switch AI provider by changing config.Provider
func NewCompletionService(cfg Config) (CompletionService, error) {
	return NewCompletionServiceWithDynamicConfig(DynamicConfig{
		Provider:         cfg.Provider,
		GeminiAPIKey:     cfg.GeminiAPIKey,
		GeminiModel:      cfg.GeminiModel,
		GetOllamaBaseURL: func() string { return cfg.OllamaBaseURL },
		GetOllamaModel:   func() string { return cfg.OllamaModel },
	})
}

// NewCompletionServiceWithDynamicConfig is NewCompletionService with runtime Ollama settings
func NewCompletionServiceWithDynamicConfig(cfg DynamicConfig) (CompletionService, error) {
	ollama := NewOllamaServiceWithGetters(withDefault(cfg.GetOllamaBaseURL, "http://localhost:11434"), withDefault(cfg.GetOllamaModel, "llama3"))

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiCompleter(gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel)), nil

	case ProviderOllama:
		return ollama, nil

	default:
		// Gemini with Ollama fallback if an API key is available, otherwise Ollama alone
		if cfg.GeminiAPIKey != "" {
			return NewFallbackService(NewGeminiCompleter(gemini.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel)), ollama), nil
		}
		return ollama, nil
	}
}

func withDefault(get func() string, def string) func() string {
	return func() string {
		if get != nil {
			if v := get(); v != "" {
				return v
			}
		}
		return def
	}
}

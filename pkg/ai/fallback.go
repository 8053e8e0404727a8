package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService implements provider routing with fallback:
// Gemini first (better quality), Ollama when Gemini fails.
type FallbackService struct {
	gemini CompletionService
	ollama *OllamaService
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(gemini CompletionService, ollama *OllamaService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	// Check for network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Check for common connection error messages
	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource_exhausted",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// Complete tries Gemini first, falls back to Ollama on any Gemini error
func (f *FallbackService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if f.gemini != nil {
		result, err := f.gemini.Complete(ctx, req)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		if isQuotaError(err) {
			log.Printf("[AI] Gemini quota exhausted: %v, falling back to Ollama", err)
		} else {
			log.Printf("[AI] Gemini error: %v, falling back to Ollama", err)
		}
	}

	if f.ollama != nil {
		// The model name belongs to the primary provider; Ollama uses its own.
		ollamaReq := req
		ollamaReq.Model = ""
		result, err := f.ollama.Complete(ctx, ollamaReq)
		if err == nil {
			return result, nil
		}

		// If Ollama also fails with connection error, try Gemini again
		if isConnectionError(err) && f.gemini != nil && ctx.Err() == nil {
			log.Printf("[AI] Ollama connection failed: %v, retrying Gemini", err)
			return f.gemini.Complete(ctx, req)
		}

		return "", fmt.Errorf("ollama completion failed: %w", err)
	}

	return "", fmt.Errorf("no AI provider available for completion")
}

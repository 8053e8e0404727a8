package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiService struct {
	ApiKey       string
	BaseURL      string
	DefaultModel string
	client       *http.Client
}

// Content is one turn of a Gemini conversation. Role is "user" or "model".
type Content struct {
	Role string
	Text string
}

// APIError is a non-2xx answer from the Gemini API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Gemini API error (%d): %s", e.StatusCode, e.Body)
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiService{
		ApiKey:       apiKey,
		BaseURL:      defaultBaseURL,
		DefaultModel: model,
		client:       &http.Client{},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content        `json:"systemInstruction,omitempty"`
	Contents          []content       `json:"contents"`
	GenerationConfig  *generateConfig `json:"generationConfig,omitempty"`
}

type generateConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate calls generateContent and returns the text of the first candidate
func (g *GeminiService) Generate(ctx context.Context, model, system string, contents []Content, temperature float64) (string, error) {
	if model == "" {
		model = g.DefaultModel
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", strings.TrimRight(g.BaseURL, "/"), model, g.ApiKey)

	payload := generateRequest{}
	if system != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	for _, c := range contents {
		payload.Contents = append(payload.Contents, content{Role: c.Role, Parts: []part{{Text: c.Text}}})
	}
	if temperature > 0 {
		payload.GenerationConfig = &generateConfig{Temperature: temperature}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0 {
		var sb strings.Builder
		for _, p := range result.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("no completion returned")
}

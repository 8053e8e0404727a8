package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"voicecmd-backend/pkg/ai"
	"voicecmd-backend/pkg/config"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// RuntimeSettings holds the LLM settings that can change without a restart.
// Everything else is read from the startup config.
type RuntimeSettings struct {
	mu            sync.RWMutex
	ollamaBaseURL string
	ollamaModel   string
	cfg           *config.Config
}

func NewRuntimeSettings(cfg *config.Config) *RuntimeSettings {
	return &RuntimeSettings{
		ollamaBaseURL: cfg.OllamaBaseURL,
		ollamaModel:   cfg.OllamaModel,
		cfg:           cfg,
	}
}

func (s *RuntimeSettings) OllamaBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaBaseURL
}

func (s *RuntimeSettings) OllamaModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaModel
}

// SetOllama switches the Ollama endpoint used by the next completion. An empty
// model keeps the current one.
func (s *RuntimeSettings) SetOllama(baseURL, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ollamaBaseURL = baseURL
	if model != "" {
		s.ollamaModel = model
	}
}

// PipelineSettings is the read-only view returned by GET /api/settings
type PipelineSettings struct {
	AIProvider           string `json:"ai_provider"`
	GeminiModel          string `json:"gemini_model"`
	OllamaBaseURL        string `json:"ollama_base_url"`
	OllamaModel          string `json:"ollama_model"`
	EventTimezone        string `json:"event_timezone"`
	StageTimeout         string `json:"stage_timeout"`
	DispatchMaxRetries   int    `json:"dispatch_max_retries"`
	DispatchBackoff      string `json:"dispatch_backoff"`
	LabelDedup           bool   `json:"label_dedup"`
	TranscriptionEnabled bool   `json:"transcription_enabled"`
	RateLimitPerMinute   int    `json:"rate_limit_per_minute"`
}

func (s *RuntimeSettings) Snapshot() PipelineSettings {
	return PipelineSettings{
		AIProvider:           s.cfg.AIProvider,
		GeminiModel:          s.cfg.GeminiModel,
		OllamaBaseURL:        s.OllamaBaseURL(),
		OllamaModel:          s.OllamaModel(),
		EventTimezone:        s.cfg.EventTimezone,
		StageTimeout:         s.cfg.StageTimeout.String(),
		DispatchMaxRetries:   s.cfg.DispatchMaxRetries,
		DispatchBackoff:      s.cfg.DispatchBackoff.String(),
		LabelDedup:           s.cfg.LabelDedup,
		TranscriptionEnabled: s.cfg.TranscribeAPIKey != "",
		RateLimitPerMinute:   s.cfg.RateLimitPerMinute,
	}
}

// SettingsHandler serves the runtime settings API
type SettingsHandler struct {
	settings *RuntimeSettings
	ollama   *ai.OllamaService
}

func NewSettingsHandler(settings *RuntimeSettings) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		ollama:   ai.NewOllamaServiceWithGetters(settings.OllamaBaseURL, settings.OllamaModel),
	}
}

// OllamaSettingsRequest represents the request body for switching the Ollama endpoint
type OllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

func (r OllamaSettingsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OllamaBaseURL, validation.Required, is.RequestURL),
	)
}

// GetSettings returns the pipeline configuration in effect
// GET /api/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Snapshot())
}

// UpdateOllama points completions at another Ollama server or model
// PUT /api/settings/ollama
func (h *SettingsHandler) UpdateOllama(c *gin.Context) {
	var req OllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.settings.SetOllama(req.OllamaBaseURL, req.OllamaModel)
	c.JSON(http.StatusOK, h.settings.Snapshot())
}

// TestOllama checks that an Ollama server answers, the current one by default
// POST /api/settings/ollama/test
func (h *SettingsHandler) TestOllama(c *gin.Context) {
	var req OllamaSettingsRequest
	_ = c.ShouldBindJSON(&req)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Ping falls back to the current base URL when req carries none
	status, err := h.ollama.Ping(ctx, req.OllamaBaseURL)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "error": err.Error()})
		return
	}
	if status != http.StatusOK {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "status_code": status})
		return
	}

	baseURL := req.OllamaBaseURL
	if baseURL == "" {
		baseURL = h.settings.OllamaBaseURL()
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "ollama_base_url": baseURL})
}

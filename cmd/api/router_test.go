package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voicecmd-backend/pkg/config"

	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               "8080",
		JWTSecret:          "secret",
		AuthEnabled:        true,
		AIProvider:         "ollama",
		OllamaBaseURL:      "http://127.0.0.1:1",
		OllamaModel:        "llama3",
		EventTimezone:      "Europe/Rome",
		StageTimeout:       time.Second,
		DispatchMaxRetries: 0,
		TranscribeLanguage: "it",
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	r := NewHandler(testConfig(), nil, nil, Collaborators{}, nil).Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRequiresAuth(t *testing.T) {
	r := NewHandler(testConfig(), nil, nil, Collaborators{}, nil).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/commands/text", strings.NewReader(`{"text":"ciao"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSettingsExposePipelineConfig(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = false
	cfg.DispatchMaxRetries = 2
	cfg.DispatchBackoff = 500 * time.Millisecond
	cfg.LabelDedup = true
	r := NewHandler(cfg, nil, nil, Collaborators{}, nil).Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got PipelineSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "ollama", got.AIProvider)
	require.Equal(t, "Europe/Rome", got.EventTimezone)
	require.Equal(t, "1s", got.StageTimeout)
	require.Equal(t, 2, got.DispatchMaxRetries)
	require.Equal(t, "500ms", got.DispatchBackoff)
	require.True(t, got.LabelDedup)
	require.False(t, got.TranscriptionEnabled)
}

func TestUpdateOllamaSettings(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = false
	r := NewHandler(cfg, nil, nil, Collaborators{}, nil).Router()

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/settings/ollama", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := put(`{"ollama_base_url":"http://ollama:11434","ollama_model":"mistral"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var got PipelineSettings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "http://ollama:11434", got.OllamaBaseURL)
	require.Equal(t, "mistral", got.OllamaModel)

	// an empty model keeps the current one
	w = put(`{"ollama_base_url":"http://other:11434"}`)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "mistral", got.OllamaModel)

	require.Equal(t, http.StatusBadRequest, put(`{"ollama_base_url":""}`).Code)
	require.Equal(t, http.StatusBadRequest, put(`{"ollama_base_url":"not a url"}`).Code)
}

func TestRuntimeSettingsFeedCompletions(t *testing.T) {
	s := NewRuntimeSettings(testConfig())
	s.SetOllama("http://gpu-box:11434", "")
	require.Equal(t, "http://gpu-box:11434", s.OllamaBaseURL())
	require.Equal(t, "llama3", s.OllamaModel())
}

func TestOllamaConnectionProbe(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer ollama.Close()

	cfg := testConfig()
	cfg.AuthEnabled = false
	r := NewHandler(cfg, nil, nil, Collaborators{}, nil).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/settings/ollama/test", strings.NewReader(`{"ollama_base_url":"`+ollama.URL+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"connected":true`)
}

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	answer string
	err    error
	calls  int
}

func (s *stubCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	s.calls++
	return s.answer, s.err
}

func ollamaServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: Message{Content: answer}, Done: true})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFallbackPrefersGemini(t *testing.T) {
	primary := &stubCompleter{answer: "todoist"}
	server := ollamaServer(t, "calendar")

	svc := NewFallbackService(primary, NewOllamaService(server.URL, ""))
	out, err := svc.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.NoError(t, err)
	require.Equal(t, "todoist", out)
	require.Equal(t, 1, primary.calls)
}

func TestFallbackUsesOllamaOnQuotaError(t *testing.T) {
	primary := &stubCompleter{err: errors.New("Gemini API error (429): RESOURCE_EXHAUSTED")}
	server := ollamaServer(t, "calendar")

	svc := NewFallbackService(primary, NewOllamaService(server.URL, ""))
	out, err := svc.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	require.NoError(t, err)
	require.Equal(t, "calendar", out)
}

func TestFallbackNoProvider(t *testing.T) {
	svc := NewFallbackService(nil, nil)
	_, err := svc.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
}

func TestErrorClassifiers(t *testing.T) {
	require.True(t, isQuotaError(errors.New("429 Too Many Requests")))
	require.False(t, isQuotaError(errors.New("bad request")))
	require.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")))
	require.False(t, isConnectionError(nil))
}

func TestFactoryProviders(t *testing.T) {
	_, err := NewCompletionService(Config{Provider: ProviderGemini})
	require.Error(t, err)

	svc, err := NewCompletionService(Config{Provider: ProviderOllama})
	require.NoError(t, err)
	require.IsType(t, &OllamaService{}, svc)

	svc, err = NewCompletionService(Config{Provider: ProviderAuto, GeminiAPIKey: "k"})
	require.NoError(t, err)
	require.IsType(t, &FallbackService{}, svc)

	svc, err = NewCompletionService(Config{Provider: ProviderAuto})
	require.NoError(t, err)
	require.IsType(t, &OllamaService{}, svc)
}

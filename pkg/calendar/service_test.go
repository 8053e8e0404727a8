package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTokenAuthorizedUserFormat(t *testing.T) {
	path := writeFile(t, `{"token":"ya29.a","refresh_token":"1//r","client_id":"cid","client_secret":"cs","scopes":["https://www.googleapis.com/auth/calendar"],"expiry":"2025-06-04T10:00:00Z"}`)

	tok, clientID, secret, err := LoadToken(path)
	require.NoError(t, err)
	require.Equal(t, "ya29.a", tok.AccessToken)
	require.Equal(t, "1//r", tok.RefreshToken)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, "cid", clientID)
	require.Equal(t, "cs", secret)
}

func TestLoadTokenOAuth2Format(t *testing.T) {
	path := writeFile(t, `{"access_token":"at","token_type":"Bearer","refresh_token":"rt"}`)

	tok, clientID, _, err := LoadToken(path)
	require.NoError(t, err)
	require.Equal(t, "at", tok.AccessToken)
	require.Empty(t, clientID)
}

func TestLoadTokenRejectsNonJSON(t *testing.T) {
	path := writeFile(t, `{'token': 'abc'}`)
	_, _, _, err := LoadToken(path)
	require.Error(t, err)
}

func TestLoadTokenRejectsEmpty(t *testing.T) {
	path := writeFile(t, `{}`)
	_, _, _, err := LoadToken(path)
	require.Error(t, err)
}

func TestSaveTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "new", RefreshToken: "r", TokenType: "Bearer"}))

	tok, _, _, err := LoadToken(path)
	require.NoError(t, err)
	require.Equal(t, "new", tok.AccessToken)
}

func TestInsert(t *testing.T) {
	var got gcal.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "/calendars/work@example.com/events"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ev1","htmlLink":"https://calendar.google.com/event?eid=ev1"}`))
	}))
	defer srv.Close()

	svc, err := NewServiceWithHTTPClient(context.Background(), srv.Client(), "work@example.com", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	created, err := svc.Insert(context.Background(), &gcal.Event{
		Summary: "Riunione",
		Start:   &gcal.EventDateTime{DateTime: "2025-06-04T10:00:00+02:00", TimeZone: "Europe/Rome"},
		End:     &gcal.EventDateTime{DateTime: "2025-06-04T11:00:00+02:00", TimeZone: "Europe/Rome"},
	})
	require.NoError(t, err)
	require.Equal(t, "https://calendar.google.com/event?eid=ev1", created.HtmlLink)
	require.Equal(t, "Riunione", got.Summary)
	require.Equal(t, "Europe/Rome", got.Start.TimeZone)
}

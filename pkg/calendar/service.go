package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc func(*oauth2.Token) error

type Service struct {
	srv        *gcal.Service
	calendarID string
}

type notifyTokenSource struct {
	mu       sync.Mutex
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Calendar] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// storedCredentials accepts both the authorized-user file written by Google's
// client libraries ("token", "client_id", ...) and a serialized oauth2.Token.
type storedCredentials struct {
	Token        string    `json:"token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Expiry       time.Time `json:"expiry"`
}

// LoadToken reads a token file. The file is decoded as JSON and nothing else.
func LoadToken(path string) (*oauth2.Token, string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("read token file: %w", err)
	}
	var creds storedCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, "", "", fmt.Errorf("decode token file: %w", err)
	}
	access := creds.AccessToken
	if access == "" {
		access = creds.Token
	}
	if access == "" && creds.RefreshToken == "" {
		return nil, "", "", errors.New("token file has neither access nor refresh token")
	}
	tokenType := creds.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: creds.RefreshToken,
		TokenType:    tokenType,
		Expiry:       creds.Expiry,
	}, creds.ClientID, creds.ClientSecret, nil
}

// SaveToken writes a refreshed token back as a plain oauth2.Token JSON document
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// NewService builds a Calendar client from a stored user token. No consent flow
// is run here: the token file must already exist.
func NewService(ctx context.Context, clientID, clientSecret, tokenFile, calendarID string) (*Service, error) {
	token, fileClientID, fileClientSecret, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	if fileClientID != "" {
		clientID = fileClientID
	}
	if fileClientSecret != "" {
		clientSecret = fileClientSecret
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarScope},
	}

	wrappedSource := &notifyTokenSource{
		src:     config.TokenSource(ctx, token),
		current: token,
		callback: func(t *oauth2.Token) error {
			return SaveToken(tokenFile, t)
		},
	}

	return NewServiceWithHTTPClient(ctx, oauth2.NewClient(ctx, wrappedSource), calendarID)
}

// NewServiceWithHTTPClient builds a Calendar client on top of an authorized HTTP client
func NewServiceWithHTTPClient(ctx context.Context, client *http.Client, calendarID string, opts ...option.ClientOption) (*Service, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return &Service{srv: srv, calendarID: calendarID}, nil
}

// Insert creates the event on the configured calendar and returns the stored event
func (s *Service) Insert(ctx context.Context, event *gcal.Event) (*gcal.Event, error) {
	return s.srv.Events.Insert(s.calendarID, event).Context(ctx).Do()
}

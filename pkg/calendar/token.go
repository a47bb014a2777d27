package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const googleTokenURL = "https://oauth2.googleapis.com/token"

// TokenSource supplies a bearer token for Calendar API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Useful for tests and short-lived
// manual runs.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty token")
	}
	return string(s), nil
}

// StoredToken is the OAuth token blob kept in the credential store. It is
// the output of the one-time consent flow: a refresh token plus the client
// identity that obtained it.
type StoredToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Expiry       time.Time `json:"expiry"`
}

// ParseStoredToken decodes a StoredToken from its JSON form.
func ParseStoredToken(data string) (*StoredToken, error) {
	var tok StoredToken
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		return nil, fmt.Errorf("parsing stored token: %w", err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("stored token has neither access nor refresh token")
	}
	return &tok, nil
}

// RefreshingTokenSource serves access tokens from a StoredToken, refreshing
// against the Google OAuth endpoint when the cached token is near expiry.
type RefreshingTokenSource struct {
	mu       sync.Mutex
	tok      StoredToken
	client   *http.Client
	tokenURL string
}

// NewRefreshingTokenSource builds a token source around a stored token.
func NewRefreshingTokenSource(tok StoredToken) *RefreshingTokenSource {
	return &RefreshingTokenSource{
		tok:      tok,
		client:   &http.Client{Timeout: 30 * time.Second},
		tokenURL: googleTokenURL,
	}
}

// Token returns a valid access token, refreshing if needed.
func (s *RefreshingTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A minute of slack keeps us from handing out a token that expires
	// mid-request.
	if s.tok.AccessToken != "" && time.Until(s.tok.Expiry) > time.Minute {
		return s.tok.AccessToken, nil
	}

	if s.tok.RefreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.tok.RefreshToken},
		"client_id":     {s.tok.ClientID},
		"client_secret": {s.tok.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh failed: HTTP %d", resp.StatusCode)
	}

	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}

	s.tok.AccessToken = refreshed.AccessToken
	s.tok.Expiry = time.Now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	return s.tok.AccessToken, nil
}

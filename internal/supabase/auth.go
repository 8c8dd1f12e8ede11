// Package supabase contains thin REST clients for the Supabase services
// the scan pipeline talks to: GoTrue auth, Storage, and Edge Functions.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/veilscan/veilscan/internal/scan"
)

// expiryLeeway refreshes sessions slightly before the server-side expiry
// so a token is never handed out moments from death.
const expiryLeeway = 30 * time.Second

// AuthClient talks to a GoTrue-style auth endpoint. It caches one session
// (access token, refresh token, user) and refreshes it on demand.
type AuthClient struct {
	baseURL string
	apiKey  string
	client  *http.Client

	mu      sync.Mutex
	session *authSession
	now     func() time.Time
}

type authSession struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	user         scan.User
}

// tokenResponse is the GoTrue token grant response.
type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token"`
	User         scan.User `json:"user"`
}

// NewAuthClient creates an auth client for the project at baseURL.
func NewAuthClient(baseURL, apiKey string) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
}

// SignIn exchanges email/password credentials for a session.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	resp, err := a.tokenGrant(ctx, "password", body)
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}
	a.storeSession(resp)
	return nil
}

// CurrentUser returns the signed-in user, or nil when no session exists.
func (a *AuthClient) CurrentUser(ctx context.Context) (*scan.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, nil
	}
	user := a.session.user
	return &user, nil
}

// AccessToken returns a token valid for at least expiryLeeway, refreshing
// the session when the cached token is about to expire.
func (a *AuthClient) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session == nil {
		return "", fmt.Errorf("no active session")
	}
	if a.now().Before(session.expiresAt.Add(-expiryLeeway)) {
		return session.accessToken, nil
	}

	body := map[string]string{"refresh_token": session.refreshToken}
	resp, err := a.tokenGrant(ctx, "refresh_token", body)
	if err != nil {
		return "", fmt.Errorf("refreshing session: %w", err)
	}
	a.storeSession(resp)
	return resp.AccessToken, nil
}

// VerifyToken validates a bearer token against the auth endpoint and
// returns the user it belongs to. Used server-side.
func (a *AuthClient) VerifyToken(ctx context.Context, token string) (*scan.User, error) {
	url := fmt.Sprintf("%s/auth/v1/user", a.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling auth API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token verification failed (status %d)", resp.StatusCode)
	}

	var user scan.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("token verification returned no user")
	}
	return &user, nil
}

func (a *AuthClient) tokenGrant(ctx context.Context, grantType string, body map[string]string) (*tokenResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", a.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling auth API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("auth API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &tokenResp, nil
}

func (a *AuthClient) storeSession(resp *tokenResponse) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = &authSession{
		accessToken:  resp.AccessToken,
		refreshToken: resp.RefreshToken,
		expiresAt:    a.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		user:         resp.User,
	}
}

// Package iam manages the IBM Cloud IAM bearer token used by the watsonx
// adapters. The token is process-wide shared state refreshed lazily on
// demand; concurrent refreshes are idempotent (last write wins).
package iam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// refreshMargin is how long before recorded expiry a cached token stops
// being considered valid. IAM tokens live ~1 hour; refreshing 5 minutes
// early keeps in-flight provider calls from straddling the expiry.
const refreshMargin = 5 * time.Minute

// AuthError distinguishes a failed credential exchange from generic provider
// trouble so the router can map it to an unauthorized status.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("iam token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("iam token exchange failed: status %d: %s", e.Status, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Manager exchanges an IBM Cloud API key for an IAM access token and caches
// it until shortly before expiry.
type Manager struct {
	iamURL string
	apiKey string
	client *http.Client
	now    func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewManager creates a credential manager for the given IAM endpoint.
func NewManager(iamURL, apiKey string) *Manager {
	return &Manager{
		iamURL: iamURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// APIKey returns the raw API key for degraded-mode fallback.
func (m *Manager) APIKey() string { return m.apiKey }

// Token returns a valid bearer token, exchanging the API key for a fresh one
// when the cache is empty or within the refresh margin of expiry. It never
// returns an expired token.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.token != "" && m.now().Before(m.expiry.Add(-refreshMargin)) {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	token, expiry, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}

	// Wholesale replacement; redundant refreshes under concurrency are
	// tolerable and the last writer wins.
	m.mu.Lock()
	m.token = token
	m.expiry = expiry
	m.mu.Unlock()

	log.Debug().Time("expiry", expiry).Msg("IAM token refreshed")
	return token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (m *Manager) exchange(ctx context.Context) (string, time.Time, error) {
	form := url.Values{
		"grant_type":    {"urn:ibm:params:oauth:grant-type:apikey"},
		"apikey":        {m.apiKey},
		"response_type": {"cloud_iam"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.iamURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", time.Time{}, &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, &AuthError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, &AuthError{Err: fmt.Errorf("response missing access_token")}
	}

	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600 // IAM default lifetime
	}

	return tr.AccessToken, m.now().Add(time.Duration(expiresIn) * time.Second), nil
}

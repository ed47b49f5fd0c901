package iam

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type mockRT struct {
	roundTrip func(req *http.Request) (*http.Response, error)
}

func (m *mockRT) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.roundTrip(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestManager(t *testing.T, rt http.RoundTripper) *Manager {
	t.Helper()
	m := NewManager("https://iam.cloud.ibm.com/identity/token", "test-api-key")
	m.client = &http.Client{Transport: rt}
	return m
}

func TestToken_ExchangeRequestShape(t *testing.T) {
	var captured *http.Request
	var capturedBody string
	m := newTestManager(t, &mockRT{
		roundTrip: func(req *http.Request) (*http.Response, error) {
			captured = req
			body, _ := io.ReadAll(req.Body)
			capturedBody = string(body)
			return response(http.StatusOK, `{"access_token":"tok-1","expires_in":3600}`), nil
		},
	})

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "tok-1" {
		t.Errorf("Token() = %q, want %q", token, "tok-1")
	}

	if got := captured.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", got)
	}
	for _, part := range []string{
		"grant_type=urn%3Aibm%3Aparams%3Aoauth%3Agrant-type%3Aapikey",
		"apikey=test-api-key",
		"response_type=cloud_iam",
	} {
		if !strings.Contains(capturedBody, part) {
			t.Errorf("form body missing %q: %s", part, capturedBody)
		}
	}
}

func TestToken_CachedWithinMargin(t *testing.T) {
	exchanges := 0
	m := newTestManager(t, &mockRT{
		roundTrip: func(req *http.Request) (*http.Response, error) {
			exchanges++
			return response(http.StatusOK, `{"access_token":"tok-1","expires_in":3600}`), nil
		},
	})

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("first Token() error = %v", err)
	}
	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("second Token() error = %v", err)
	}

	if exchanges != 1 {
		t.Errorf("exchanges = %d, want 1 (second call should hit cache)", exchanges)
	}
}

func TestToken_RefreshesNearExpiry(t *testing.T) {
	exchanges := 0
	now := time.Now()
	m := newTestManager(t, &mockRT{
		roundTrip: func(req *http.Request) (*http.Response, error) {
			exchanges++
			return response(http.StatusOK, `{"access_token":"tok-fresh","expires_in":3600}`), nil
		},
	})
	m.now = func() time.Time { return now }

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	// Advance to inside the 5-minute safety margin.
	now = now.Add(56 * time.Minute)

	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "tok-fresh" {
		t.Errorf("Token() = %q, want refreshed token", token)
	}
	if exchanges != 2 {
		t.Errorf("exchanges = %d, want 2 (expiring token must be refreshed)", exchanges)
	}
}

func TestToken_ExchangeFailureIsAuthError(t *testing.T) {
	m := newTestManager(t, &mockRT{
		roundTrip: func(req *http.Request) (*http.Response, error) {
			return response(http.StatusBadRequest, `{"errorCode":"BXNIM0415E"}`), nil
		},
	})

	_, err := m.Token(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Token() error = %v, want *AuthError", err)
	}
	if authErr.Status != http.StatusBadRequest {
		t.Errorf("AuthError.Status = %d, want 400", authErr.Status)
	}
	if !strings.Contains(authErr.Body, "BXNIM0415E") {
		t.Errorf("AuthError.Body should carry the raw error body, got %q", authErr.Body)
	}
}

func TestToken_MissingAccessToken(t *testing.T) {
	m := newTestManager(t, &mockRT{
		roundTrip: func(req *http.Request) (*http.Response, error) {
			return response(http.StatusOK, `{}`), nil
		},
	})

	_, err := m.Token(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Token() error = %v, want *AuthError", err)
	}
}

package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBuildAuthorizeURL(t *testing.T) {
	tests := []struct {
		name        string
		clientID    string
		redirectURI string
		scopes      string
		state       string
		wantErr     bool
		wantParts   []string
	}{
		{
			name:        "valid request",
			clientID:    "test-client-id",
			redirectURI: "http://localhost/callback",
			scopes:      DefaultScopes,
			state:       "random-state",
			wantErr:     false,
			wantParts:   []string{"client_id=test-client-id", "state=random-state", "scope="},
		},
		{
			name:        "empty client ID",
			clientID:    "",
			redirectURI: "http://localhost/callback",
			scopes:      DefaultScopes,
			state:       "state",
			wantErr:     true,
		},
		{
			name:        "empty redirect URI",
			clientID:    "client",
			redirectURI: "",
			scopes:      DefaultScopes,
			state:       "state",
			wantErr:     true,
		},
		{
			name:        "comma separated scopes normalized",
			clientID:    "client-id",
			redirectURI: "http://localhost/callback",
			scopes:      "channel:read:predictions,channel:manage:predictions",
			state:       "state-123",
			wantErr:     false,
			wantParts:   []string{"client_id=client-id", "scope=channel%3Aread%3Apredictions+channel%3Amanage%3Apredictions"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := BuildAuthorizeURL(tt.clientID, tt.redirectURI, tt.scopes, tt.state)

			if tt.wantErr {
				if err == nil {
					t.Error("BuildAuthorizeURL() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("BuildAuthorizeURL() unexpected error = %v", err)
				return
			}

			for _, part := range tt.wantParts {
				if !strings.Contains(url, part) {
					t.Errorf("URL missing expected part %q: %s", part, url)
				}
			}
			if !strings.HasPrefix(url, "https://id.twitch.tv/oauth2/authorize") {
				t.Errorf("URL doesn't start with Twitch auth endpoint: %s", url)
			}
		})
	}
}

func TestClient_RefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("path = %s, want /token", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %s, want refresh_token", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "old-refresh" {
			t.Errorf("refresh_token = %s, want old-refresh", r.PostForm.Get("refresh_token"))
		}
		if r.PostForm.Get("client_id") != "cid" || r.PostForm.Get("client_secret") != "csecret" {
			t.Errorf("missing client credentials in form")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"token_type":    "bearer",
			"expires_in":    14400,
		})
	}))
	defer server.Close()

	client := &Client{AuthURL: server.URL}
	res, err := client.RefreshToken(context.Background(), "cid", "csecret", "old-refresh")
	if err != nil {
		t.Fatalf("RefreshToken() unexpected error = %v", err)
	}
	if res.AccessToken != "new-access" || res.RefreshToken != "new-refresh" {
		t.Errorf("RefreshToken() = %+v, want rotated token pair", res)
	}
}

func TestClient_RefreshToken_MissingParams(t *testing.T) {
	client := &Client{}
	if _, err := client.RefreshToken(context.Background(), "", "csecret", "rt"); err == nil {
		t.Errorf("expected error for missing clientID")
	}
	if _, err := client.RefreshToken(context.Background(), "cid", "csecret", ""); err == nil {
		t.Errorf("expected error for missing refresh token")
	}
}

func TestClient_RefreshToken_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":400,"message":"Invalid refresh token"}`))
	}))
	defer server.Close()

	client := &Client{AuthURL: server.URL}
	_, err := client.RefreshToken(context.Background(), "cid", "csecret", "bogus")
	if err == nil {
		t.Fatal("expected error for 400 from token endpoint")
	}
	if !strings.Contains(err.Error(), "Invalid refresh token") {
		t.Errorf("error %v should carry the upstream message", err)
	}
}

func TestClient_ExchangeAuthCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %s, want authorization_code", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "the-code" {
			t.Errorf("code = %s, want the-code", r.PostForm.Get("code"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-123",
			"refresh_token": "refresh-456",
			"token_type":    "bearer",
			"scope":         []string{"channel:manage:predictions"},
			"expires_in":    3600,
		})
	}))
	defer server.Close()

	client := &Client{AuthURL: server.URL}
	res, err := client.ExchangeAuthCode(context.Background(), "cid", "csecret", "the-code", "http://localhost/callback")
	if err != nil {
		t.Fatalf("ExchangeAuthCode() unexpected error = %v", err)
	}
	if res.AccessToken != "access-123" || res.RefreshToken != "refresh-456" {
		t.Errorf("ExchangeAuthCode() = %+v, want token pair", res)
	}
}

func TestComputeExpiry(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		wantAfter time.Duration
	}{
		{name: "4 hours", expiresIn: 14400, wantAfter: 4 * time.Hour},
		{name: "1 hour", expiresIn: 3600, wantAfter: 1 * time.Hour},
		{name: "zero defaults to 60 minutes", expiresIn: 0, wantAfter: 60 * time.Minute},
		{name: "negative defaults to 60 minutes", expiresIn: -100, wantAfter: 60 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now()
			expiry := ComputeExpiry(tt.expiresIn)
			after := time.Now()

			expectedExpiry := before.Add(tt.wantAfter)
			// Allow 2 second tolerance
			if expiry.Before(expectedExpiry.Add(-2*time.Second)) || expiry.After(after.Add(tt.wantAfter).Add(2*time.Second)) {
				t.Errorf("ComputeExpiry(%d) = %v, want approximately %v", tt.expiresIn, expiry, expectedExpiry)
			}
		})
	}
}

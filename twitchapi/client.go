// Package twitchapi is a thin client for the Twitch Helix endpoints the
// prediction tool consumes (users, channels, predictions) and the OAuth2
// token endpoint. Authenticated calls take the access token explicitly so
// callers always supply current session state instead of a value captured in
// a long-lived closure.
package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHelixURL = "https://api.twitch.tv/helix"
	defaultAuthURL  = "https://id.twitch.tv/oauth2"
)

var defaultHTTPClient = &http.Client{Timeout: 15 * time.Second}

// Auth carries the per-call credentials for a Helix request.
type Auth struct {
	ClientID    string
	AccessToken string
}

// Client talks to the Helix and OAuth endpoints. The zero value uses the
// production Twitch hosts and a 15s-timeout client; tests override HTTPClient
// or the base URLs.
type Client struct {
	HTTPClient *http.Client
	HelixURL   string
	AuthURL    string
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return defaultHTTPClient
}

func (c *Client) helixURL() string {
	if c.HelixURL != "" {
		return strings.TrimSuffix(c.HelixURL, "/")
	}
	return defaultHelixURL
}

func (c *Client) authURL() string {
	if c.AuthURL != "" {
		return strings.TrimSuffix(c.AuthURL, "/")
	}
	return defaultAuthURL
}

// APIError is a non-2xx response from Twitch, with the raw error payload.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitch api error: status %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is a 401 from Twitch, i.e. the access
// token was rejected and a refresh may help.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// RefreshFunc obtains a fresh access token after a 401. Implementations are
// responsible for persisting the rotated tokens before returning.
type RefreshFunc func(ctx context.Context) (string, error)

// DoWithRefresh runs call with token. On a 401 it invokes refresh exactly
// once and retries the call once with the new token. Any failure of the
// retried call, including a second 401, is returned as-is: there is never a
// second refresh, which keeps an invalid refresh token from looping forever.
func DoWithRefresh(ctx context.Context, token string, refresh RefreshFunc, call func(ctx context.Context, token string) error) error {
	err := call(ctx, token)
	if !IsUnauthorized(err) {
		return err
	}

	newToken, refreshErr := refresh(ctx)
	if refreshErr != nil {
		return fmt.Errorf("token refresh after 401: %w", refreshErr)
	}
	return call(ctx, newToken)
}

// doJSON issues an authenticated Helix request and decodes the JSON response
// into out (out may be nil for calls where the body is irrelevant).
func (c *Client) doJSON(ctx context.Context, auth Auth, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.helixURL()+path, reqBody)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Client-Id", auth.ClientID)
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

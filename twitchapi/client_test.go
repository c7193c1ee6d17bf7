package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func unauthorized() error {
	return &APIError{StatusCode: http.StatusUnauthorized, Body: `{"error":"Unauthorized","status":401}`}
}

func TestDoWithRefresh_NoRetryOnSuccess(t *testing.T) {
	calls := 0
	refreshes := 0
	err := DoWithRefresh(context.Background(), "good-token",
		func(ctx context.Context) (string, error) {
			refreshes++
			return "unused", nil
		},
		func(ctx context.Context, token string) error {
			calls++
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || refreshes != 0 {
		t.Errorf("calls = %d refreshes = %d, want 1/0", calls, refreshes)
	}
}

// A single 401 triggers exactly one refresh and one retried call.
func TestDoWithRefresh_SingleRefreshRetry(t *testing.T) {
	var tokensSeen []string
	refreshes := 0
	err := DoWithRefresh(context.Background(), "stale-token",
		func(ctx context.Context) (string, error) {
			refreshes++
			return "fresh-token", nil
		},
		func(ctx context.Context, token string) error {
			tokensSeen = append(tokensSeen, token)
			if token == "stale-token" {
				return unauthorized()
			}
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshes != 1 {
		t.Errorf("refreshes = %d, want exactly 1", refreshes)
	}
	if len(tokensSeen) != 2 || tokensSeen[0] != "stale-token" || tokensSeen[1] != "fresh-token" {
		t.Errorf("tokensSeen = %v, want [stale-token fresh-token]", tokensSeen)
	}
}

// A second 401 after the refresh surfaces to the caller without another refresh.
func TestDoWithRefresh_SecondUnauthorizedSurfaces(t *testing.T) {
	calls := 0
	refreshes := 0
	err := DoWithRefresh(context.Background(), "stale-token",
		func(ctx context.Context) (string, error) {
			refreshes++
			return "still-bad", nil
		},
		func(ctx context.Context, token string) error {
			calls++
			return unauthorized()
		})
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want the second 401 surfaced", err)
	}
	if refreshes != 1 {
		t.Errorf("refreshes = %d, want exactly 1 (no refresh loop)", refreshes)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want original + one retry", calls)
	}
}

func TestDoWithRefresh_RefreshFailureSurfaces(t *testing.T) {
	calls := 0
	refreshErr := errors.New("refresh endpoint down")
	err := DoWithRefresh(context.Background(), "stale-token",
		func(ctx context.Context) (string, error) {
			return "", refreshErr
		},
		func(ctx context.Context, token string) error {
			calls++
			return unauthorized()
		})
	if err == nil || !errors.Is(err, refreshErr) {
		t.Fatalf("err = %v, want wrapped refresh error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want no retry after failed refresh", calls)
	}
}

// Non-401 failures pass straight through without touching the refresh path.
func TestDoWithRefresh_OtherErrorsPassThrough(t *testing.T) {
	refreshes := 0
	serverErr := &APIError{StatusCode: http.StatusInternalServerError, Body: "boom"}
	err := DoWithRefresh(context.Background(), "token",
		func(ctx context.Context) (string, error) {
			refreshes++
			return "", fmt.Errorf("should not be called")
		},
		func(ctx context.Context, token string) error {
			return serverErr
		})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want the 500 passed through", err)
	}
	if refreshes != 0 {
		t.Errorf("refreshes = %d, want 0 for non-401 failure", refreshes)
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(unauthorized()) {
		t.Errorf("IsUnauthorized(401) = false")
	}
	if IsUnauthorized(&APIError{StatusCode: 500}) {
		t.Errorf("IsUnauthorized(500) = true")
	}
	if IsUnauthorized(errors.New("plain error")) {
		t.Errorf("IsUnauthorized(plain) = true")
	}
	if IsUnauthorized(nil) {
		t.Errorf("IsUnauthorized(nil) = true")
	}
}

package server

import (
	"fmt"
	"net/http"
)

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"settings", func() error {
			if _, err := h.settings.Load(); err != nil {
				return err
			}
			return nil
		}},
		{"credentials", func() error {
			if !h.settings.Current().CredentialsReady() {
				return fmt.Errorf("missing twitch client credentials or channel name")
			}
			return nil
		}},
		{"session", func() error {
			if !h.session.Ready() {
				return fmt.Errorf("session not ready, oauth not completed")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Package server exposes the HTTP API handlers.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/onnwee/prediction-studio/backend/config"
	"github.com/onnwee/prediction-studio/backend/draft"
	"github.com/onnwee/prediction-studio/backend/session"
	"github.com/onnwee/prediction-studio/backend/settings"
	"github.com/onnwee/prediction-studio/backend/suggest"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	cfg      *config.Config
	settings *settings.Store
	drafts   *draft.Store
	session  *session.Manager
	suggest  *suggest.Generator

	stateStore map[string]time.Time
	stateMu    sync.RWMutex
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// suggest may be nil when no OpenAI key is configured.
func NewHandlers(cfg *config.Config, st *settings.Store, drafts *draft.Store, sess *session.Manager, sg *suggest.Generator) *Handlers {
	return &Handlers{
		cfg:        cfg,
		settings:   st,
		drafts:     drafts,
		session:    sess,
		suggest:    sg,
		stateStore: make(map[string]time.Time),
	}
}

// writeJSON encodes v with the JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", slog.Any("err", err))
	}
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState adds a new OAuth state to the store with cleanup if needed.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	// Clean expired states periodically to prevent unbounded growth
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	// If we're still over the limit after cleanup, refuse to add more
	if len(h.stateStore) >= maxOAuthStates {
		// Don't add the state - this will cause the OAuth flow to fail
		// which is better than a memory exhaustion attack
		return
	}

	h.stateStore[state] = expiry
}

// consumeOAuthState validates and removes a state, reporting whether it was
// valid and unexpired.
func (h *Handlers) consumeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return time.Now().Before(exp)
}

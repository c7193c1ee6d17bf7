package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/prediction-studio/backend/settings"
	"github.com/onnwee/prediction-studio/backend/twitchapi"
)

// HandleTwitchOAuthStart initiates the Twitch OAuth flow by redirecting to Twitch.
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	s := h.settings.Current()
	if s.ClientID == "" || s.RedirectURI == "" {
		http.Error(w, "oauth not configured (need TWITCH_CLIENT_ID + OAUTH_REDIRECT_URI in settings)", http.StatusBadRequest)
		return
	}
	// generate state
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		http.Error(w, "state gen error", 500)
		return
	}
	st := hex.EncodeToString(b)
	h.addOAuthState(st, time.Now().Add(10*time.Minute))
	authURL, err := twitchapi.BuildAuthorizeURL(s.ClientID, s.RedirectURI, h.cfg.TwitchScopes, st)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleTwitchOAuthCallback handles the OAuth callback from Twitch, writes the
// tokens through to the settings file, and re-bootstraps the session so the
// broadcaster id and prediction snapshot come up without a restart.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		http.Error(w, "missing code/state", 400)
		return
	}
	if !h.consumeOAuthState(st) {
		http.Error(w, "invalid state", 400)
		return
	}
	ctx := r.Context()
	s := h.settings.Current()
	res, err := h.session.Client().ExchangeAuthCode(ctx, s.ClientID, s.ClientSecret, code, s.RedirectURI)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if err := h.settings.Update(func(cur *settings.Settings) {
		cur.AccessToken = res.AccessToken
		cur.RefreshToken = res.RefreshToken
	}); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	// Bring the session up with the new tokens; the callback response should
	// not wait on Helix round trips.
	go func() {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := h.session.Bootstrap(bctx); err != nil {
			slog.Error("bootstrap after oauth failed", slog.Any("err", err))
		}
	}()

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "scopes": res.Scope, "expires_in": res.ExpiresIn})
}

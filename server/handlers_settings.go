package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/prediction-studio/backend/settings"
)

// settingsView is what GET /settings exposes. Secrets are reported as
// presence booleans, never as values.
type settingsView struct {
	ClientID         string `json:"client_id"`
	ClientSecretSet  bool   `json:"client_secret_set"`
	ChannelName      string `json:"channel_name"`
	RedirectURI      string `json:"redirect_uri"`
	BroadcasterID    string `json:"broadcaster_id"`
	AccessTokenSet   bool   `json:"access_token_set"`
	RefreshTokenSet  bool   `json:"refresh_token_set"`
	OpenAIKeySet     bool   `json:"openai_key_set"`
	CredentialsReady bool   `json:"credentials_ready"`
	SessionReady     bool   `json:"session_ready"`
}

// HandleSettings serves the masked settings view and accepts updates to the
// non-token fields. Tokens only ever enter through the OAuth callback.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s := h.settings.Current()
		writeJSON(w, http.StatusOK, settingsView{
			ClientID:         s.ClientID,
			ClientSecretSet:  s.ClientSecret != "",
			ChannelName:      s.ChannelName,
			RedirectURI:      s.RedirectURI,
			BroadcasterID:    s.BroadcasterID,
			AccessTokenSet:   s.AccessToken != "",
			RefreshTokenSet:  s.RefreshToken != "",
			OpenAIKeySet:     s.OpenAIAPIKey != "",
			CredentialsReady: s.CredentialsReady(),
			SessionReady:     s.SessionReady(),
		})
	case http.MethodPut:
		var body struct {
			ClientID     *string `json:"client_id"`
			ClientSecret *string `json:"client_secret"`
			ChannelName  *string `json:"channel_name"`
			RedirectURI  *string `json:"redirect_uri"`
			OpenAIAPIKey *string `json:"openai_api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", 400)
			return
		}
		channelChanged := false
		err := h.settings.Update(func(cur *settings.Settings) {
			if body.ClientID != nil {
				cur.ClientID = strings.TrimSpace(*body.ClientID)
			}
			if body.ClientSecret != nil {
				cur.ClientSecret = strings.TrimSpace(*body.ClientSecret)
			}
			if body.ChannelName != nil {
				name := strings.TrimSpace(*body.ChannelName)
				if name != cur.ChannelName {
					channelChanged = true
					// broadcaster id belongs to the old channel
					cur.BroadcasterID = ""
				}
				cur.ChannelName = name
			}
			if body.RedirectURI != nil {
				cur.RedirectURI = strings.TrimSpace(*body.RedirectURI)
			}
			if body.OpenAIAPIKey != nil {
				cur.OpenAIAPIKey = strings.TrimSpace(*body.OpenAIAPIKey)
			}
		})
		if err != nil {
			http.Error(w, "failed to update settings", http.StatusInternalServerError)
			return
		}
		if channelChanged {
			// Resolve the new channel's broadcaster id in the background.
			go func() {
				bctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := h.session.Bootstrap(bctx); err != nil {
					slog.Error("bootstrap after channel change failed", slog.Any("err", err))
				}
			}()
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

package server

import (
	"net/http"
)

// HandleSession returns the session readiness and the current prediction
// snapshot the poller maintains.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s := h.settings.Current()
	resp := map[string]any{
		"ready":          h.session.Ready(),
		"channel":        s.ChannelName,
		"broadcaster_id": s.BroadcasterID,
	}
	if snap := h.session.Snapshot(); snap != nil {
		resp["prediction"] = snap
		resp["prediction_running"] = snap.Running()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleStatus returns a lightweight status summary: session readiness, the
// live channel info when available, and feature toggles.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{
		"ready":         h.session.Ready(),
		"poll_interval": h.cfg.PollInterval.String(),
		"chat_enabled":  h.cfg.ChatEnabled(),
		"suggestions":   h.suggest != nil,
	}
	if snap := h.session.Snapshot(); snap != nil {
		resp["prediction_status"] = snap.Status
	}
	if h.session.Ready() {
		if info, err := h.session.ChannelInfo(r.Context()); err == nil {
			resp["game_name"] = info.GameName
			resp["stream_title"] = info.Title
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

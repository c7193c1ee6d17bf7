package server

import (
	"net/http"
)

// HandleSuggest generates prediction draft suggestions for the game currently
// being streamed. Requires a ready session (for channel info) and a
// configured OpenAI key.
func (h *Handlers) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.suggest == nil {
		http.Error(w, "suggestions not configured (set OPENAI_API_KEY in settings)", http.StatusBadRequest)
		return
	}
	if !h.session.Ready() {
		http.Error(w, "session not ready", http.StatusConflict)
		return
	}
	info, err := h.session.ChannelInfo(r.Context())
	if err != nil {
		http.Error(w, "could not fetch channel info: "+err.Error(), http.StatusBadGateway)
		return
	}
	drafts, err := h.suggest.Generate(r.Context(), info.GameName, info.Title)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_name":    info.GameName,
		"stream_title": info.Title,
		"drafts":       drafts,
	})
}

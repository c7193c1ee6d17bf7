package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/prediction-studio/backend/session"
	"github.com/onnwee/prediction-studio/backend/twitchapi"
)

// actionError maps session/Helix failures to HTTP status codes: local
// validation and not-ready are the caller's fault, upstream rejections keep
// their Twitch status where it is meaningful.
func actionError(w http.ResponseWriter, err error) {
	var apiErr *twitchapi.APIError
	switch {
	case errors.Is(err, session.ErrNotReady):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &apiErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// HandlePredictionStart creates a prediction, either from an inline draft or
// from a stored draft referenced by id.
func (h *Handlers) HandlePredictionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		DraftID       string   `json:"draft_id"`
		Title         string   `json:"title"`
		Outcomes      []string `json:"outcomes"`
		WindowSeconds int      `json:"prediction_window"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", 400)
		return
	}
	if body.DraftID != "" {
		d, err := h.drafts.Get(body.DraftID)
		if err != nil {
			http.Error(w, "draft not found", http.StatusNotFound)
			return
		}
		body.Title = d.Title
		body.Outcomes = d.Outcomes
		body.WindowSeconds = d.WindowSeconds
	}

	created, err := h.session.StartPrediction(r.Context(), body.Title, body.Outcomes, body.WindowSeconds)
	if err != nil {
		actionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandlePredictionEnd resolves the running prediction with a winning outcome.
func (h *Handlers) HandlePredictionEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ID               string `json:"id"`
		WinningOutcomeID string `json:"winning_outcome_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", 400)
		return
	}
	resolved, err := h.session.EndPrediction(r.Context(), body.ID, body.WinningOutcomeID)
	if err != nil {
		actionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// HandlePredictionCancel cancels the running prediction and refunds points.
func (h *Handlers) HandlePredictionCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", 400)
		return
	}
	canceled, err := h.session.CancelPrediction(r.Context(), body.ID)
	if err != nil {
		actionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, canceled)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/prediction-studio/backend/draft"
)

// HandleDrafts lists stored drafts and accepts new ones.
func (h *Handlers) HandleDrafts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"drafts": h.drafts.List()})
	case http.MethodPost:
		var d draft.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, "invalid json", 400)
			return
		}
		saved, err := h.drafts.Add(d)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleDraftsDispatcher routes /drafts/{id} requests.
func (h *Handlers) HandleDraftsDispatcher(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/drafts/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		d, err := h.drafts.Get(id)
		if err != nil {
			http.Error(w, "draft not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodDelete:
		if err := h.drafts.Delete(id); err != nil {
			if errors.Is(err, draft.ErrNotFound) {
				http.Error(w, "draft not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

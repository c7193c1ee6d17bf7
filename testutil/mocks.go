package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockTwitchServer creates a test server that mocks Twitch Helix API responses
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *MockTwitchServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

// MockUserResponse adds a handler for the /users endpoint
func (m *MockTwitchServer) MockUserResponse(userID, login string) {
	m.Handlers["/users"] = func(w http.ResponseWriter, r *http.Request) {
		m.writeJSON(w, map[string]any{
			"data": []map[string]string{
				{"id": userID, "login": login},
			},
		})
	}
}

// MockChannelResponse adds a handler for the /channels endpoint
func (m *MockTwitchServer) MockChannelResponse(gameName, title string) {
	m.Handlers["/channels"] = func(w http.ResponseWriter, r *http.Request) {
		m.writeJSON(w, map[string]any{
			"data": []map[string]string{
				{"game_name": gameName, "title": title},
			},
		})
	}
}

// MockPredictionsResponse adds a handler returning the given predictions for
// GET /predictions
func (m *MockTwitchServer) MockPredictionsResponse(predictions []map[string]any) {
	m.Handlers["GET /predictions"] = func(w http.ResponseWriter, r *http.Request) {
		m.writeJSON(w, map[string]any{"data": predictions})
	}
}

// MockCreatePredictionResponse adds a handler echoing a created prediction
// for POST /predictions
func (m *MockTwitchServer) MockCreatePredictionResponse(id string) {
	m.Handlers["POST /predictions"] = func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test mock request
		m.writeJSON(w, map[string]any{
			"data": []map[string]any{
				{"id": id, "title": body["title"], "status": "ACTIVE"},
			},
		})
	}
}

// MockPatchPredictionResponse adds a handler echoing the patched status for
// PATCH /predictions
func (m *MockTwitchServer) MockPatchPredictionResponse() {
	m.Handlers["PATCH /predictions"] = func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // test mock request
		m.writeJSON(w, map[string]any{
			"data": []map[string]any{
				{"id": body["id"], "status": body["status"]},
			},
		})
	}
}

// MockOAuthTokenResponse adds a handler for the OAuth token endpoint
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.Handlers["/token"] = func(w http.ResponseWriter, r *http.Request) {
		m.writeJSON(w, map[string]any{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		})
	}
}

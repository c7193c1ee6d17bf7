package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/prediction-studio/backend/telemetry"
)

func init() { telemetry.Init() }

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "Chess, ranked grind", req.Messages[1].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerate_ParsesFencedJSON(t *testing.T) {
	content := "```json\n{\"data\":[{\"title\":\"Win this game?\",\"options\":[\"Win\",\"Lose\"]},{\"title\":\"Blunder a piece?\",\"options\":[\"Yes\",\"No\",\"Twice\"]}]}\n```"
	server := completionServer(t, content)
	g := &Generator{APIKey: "test-key", BaseURL: server.URL}

	drafts, err := g.Generate(context.Background(), "Chess", "ranked grind")
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Win this game?", drafts[0].Title)
	assert.Equal(t, []string{"Win", "Lose"}, drafts[0].Outcomes)
	assert.Equal(t, 90, drafts[0].WindowSeconds)
	assert.Equal(t, []string{"Yes", "No", "Twice"}, drafts[1].Outcomes)
}

func TestGenerate_BareJSONAndCap(t *testing.T) {
	items := `{"title":"t","options":["a","b"]}`
	content := `{"data":[` + items + `,` + items + `,` + items + `,` + items + `,` + items + `,` + items + `,` + items + `]}`
	server := completionServer(t, content)
	g := &Generator{APIKey: "test-key", BaseURL: server.URL}

	drafts, err := g.Generate(context.Background(), "Chess", "ranked grind")
	require.NoError(t, err)
	assert.Len(t, drafts, MaxSuggestions)
}

func TestGenerate_MalformedJSON(t *testing.T) {
	server := completionServer(t, "sure! here are some predictions:")
	g := &Generator{APIKey: "test-key", BaseURL: server.URL}

	_, err := g.Generate(context.Background(), "Chess", "ranked grind")
	assert.ErrorContains(t, err, "parse suggestion JSON")
}

func TestGenerate_SkipsUnusableEntries(t *testing.T) {
	content := `{"data":[{"title":"","options":["a","b"]},{"title":"ok","options":["a"]},{"title":"good","options":["a","b"]}]}`
	server := completionServer(t, content)
	g := &Generator{APIKey: "test-key", BaseURL: server.URL}

	drafts, err := g.Generate(context.Background(), "Chess", "ranked grind")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "good", drafts[0].Title)
}

func TestGenerate_RequiresConfig(t *testing.T) {
	g := &Generator{}
	_, err := g.Generate(context.Background(), "Chess", "ranked grind")
	assert.ErrorContains(t, err, "api key")

	g.APIKey = "k"
	_, err = g.Generate(context.Background(), "", "ranked grind")
	assert.Error(t, err)
}

func TestGenerate_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	t.Cleanup(server.Close)
	g := &Generator{APIKey: "test-key", BaseURL: server.URL}

	_, err := g.Generate(context.Background(), "Chess", "ranked grind")
	assert.ErrorContains(t, err, "chat completion failed")
}

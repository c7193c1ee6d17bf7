// Package suggest generates prediction draft ideas for the current stream by
// asking an OpenAI chat model for title/outcome pairs grounded in the game
// being played.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/prediction-studio/backend/draft"
	"github.com/onnwee/prediction-studio/backend/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	// MaxSuggestions caps how many drafts a single request may return.
	MaxSuggestions = 5
)

// Completions routinely take several seconds.
var defaultHTTPClient = &http.Client{Timeout: 25 * time.Second}

const systemPrompt = `You are an expert at the game given to you and an assistant to a Twitch streamer, helping them create good, fun and interactive channel point predictions for their community. Use modern, casual language and create up to 5 predictions the streamer could run, using the given game name and stream title as context.
Respond ONLY with JSON in the form {"data":[{"title":"...","options":["...","..."]}]}.
Each prediction has 2 or 3 options. Titles are at most 45 characters, options at most 25 characters each.
Do not suggest predictions unrelated to the game. Avoid generic options like "Player A" or "Player B"; options must be intuitive to the average viewer. Most predictions should refer to the outcome of the match or the state of the streamer.`

// Generator calls the OpenAI chat completions endpoint. The zero value is not
// usable; APIKey is required.
type Generator struct {
	APIKey     string
	Model      string // defaults to gpt-4o-mini
	BaseURL    string // overridable for tests
	HTTPClient *http.Client
}

func (g *Generator) http() *http.Client {
	if g.HTTPClient != nil {
		return g.HTTPClient
	}
	return defaultHTTPClient
}

func (g *Generator) baseURL() string {
	if g.BaseURL != "" {
		return strings.TrimSuffix(g.BaseURL, "/")
	}
	return defaultBaseURL
}

func (g *Generator) model() string {
	if g.Model != "" {
		return g.Model
	}
	return defaultModel
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for prediction drafts for the given game and stream
// title. Returned drafts have no IDs; callers persist them through the draft
// store if the streamer keeps any.
func (g *Generator) Generate(ctx context.Context, game, title string) ([]draft.Draft, error) {
	if g.APIKey == "" {
		return nil, errors.New("openai api key not configured")
	}
	if game == "" || title == "" {
		return nil, errors.New("game and stream title are required for suggestions")
	}
	telemetry.SuggestionRequests.Inc()

	drafts, err := g.generate(ctx, game, title)
	if err != nil {
		telemetry.SuggestionFailures.Inc()
		return nil, err
	}
	return drafts, nil
}

func (g *Generator) generate(ctx context.Context, game, title string) ([]draft.Draft, error) {
	payload := chatRequest{
		Model: g.model(),
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: game + ", " + title},
		},
		Temperature: 0.3,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL()+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openai chat completion failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, errors.New("empty chat completion response")
	}
	return parseDrafts(cr.Choices[0].Message.Content)
}

// parseDrafts extracts the drafts from the model output, tolerating markdown
// code fences around the JSON.
func parseDrafts(content string) ([]draft.Draft, error) {
	content = stripFences(content)

	var parsed struct {
		Data []struct {
			Title   string   `json:"title"`
			Options []string `json:"options"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse suggestion JSON: %w", err)
	}

	drafts := make([]draft.Draft, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		if p.Title == "" || len(p.Options) < 2 {
			continue
		}
		drafts = append(drafts, draft.Draft{
			Title:         p.Title,
			Outcomes:      p.Options,
			WindowSeconds: draft.DefaultWindowSeconds,
		})
		if len(drafts) == MaxSuggestions {
			break
		}
	}
	if len(drafts) == 0 {
		return nil, errors.New("model returned no usable predictions")
	}
	return drafts, nil
}

// stripFences removes a surrounding ```json ... ``` (or bare ```) block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	return s
}

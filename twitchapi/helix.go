package twitchapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Prediction lifecycle states as reported by Helix.
const (
	StatusActive   = "ACTIVE"
	StatusLocked   = "LOCKED"
	StatusResolved = "RESOLVED"
	StatusCanceled = "CANCELED"
)

// User is the subset of a Helix user object the tool needs.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
	BroadcasterType string `json:"broadcaster_type"`
}

// ChannelInfo is the current category and stream title of a channel.
type ChannelInfo struct {
	GameName string `json:"game_name"`
	Title    string `json:"title"`
}

// Outcome is one selectable option of a prediction.
type Outcome struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Color string `json:"color"`
}

// Prediction is a channel points prediction as returned by Helix.
type Prediction struct {
	ID               string    `json:"id"`
	BroadcasterID    string    `json:"broadcaster_id"`
	Title            string    `json:"title"`
	Outcomes         []Outcome `json:"outcomes"`
	PredictionWindow int       `json:"prediction_window"`
	Status           string    `json:"status"`
	WinningOutcomeID string    `json:"winning_outcome_id,omitempty"`
	CreatedAt        string    `json:"created_at,omitempty"`
}

// Running reports whether the prediction can still be ended or canceled.
func (p *Prediction) Running() bool {
	return p.Status == StatusActive || p.Status == StatusLocked
}

// GetUser resolves a login name to its Helix user object.
func (c *Client) GetUser(ctx context.Context, auth Auth, login string) (*User, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	q := url.Values{}
	q.Set("login", login)
	var body struct {
		Data []User `json:"data"`
	}
	if err := c.doJSON(ctx, auth, http.MethodGet, "/users", q, nil, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return &body.Data[0], nil
}

// GetChannelInfo returns the current game and stream title for a broadcaster.
func (c *Client) GetChannelInfo(ctx context.Context, auth Auth, broadcasterID string) (*ChannelInfo, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	var body struct {
		Data []ChannelInfo `json:"data"`
	}
	if err := c.doJSON(ctx, auth, http.MethodGet, "/channels", q, nil, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("channel not found")
	}
	return &body.Data[0], nil
}

// CreatePredictionRequest carries the fields of a new prediction.
type CreatePredictionRequest struct {
	BroadcasterID    string
	Title            string
	Outcomes         []string
	PredictionWindow int
}

// CreatePrediction starts a new channel points prediction.
func (c *Client) CreatePrediction(ctx context.Context, auth Auth, req CreatePredictionRequest) (*Prediction, error) {
	if req.BroadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	type outcomeTitle struct {
		Title string `json:"title"`
	}
	outcomes := make([]outcomeTitle, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		outcomes = append(outcomes, outcomeTitle{Title: o})
	}
	payload := struct {
		BroadcasterID    string         `json:"broadcaster_id"`
		Title            string         `json:"title"`
		Outcomes         []outcomeTitle `json:"outcomes"`
		PredictionWindow int            `json:"prediction_window"`
	}{req.BroadcasterID, req.Title, outcomes, req.PredictionWindow}

	var body struct {
		Data []Prediction `json:"data"`
	}
	if err := c.doJSON(ctx, auth, http.MethodPost, "/predictions", nil, payload, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("empty create prediction response")
	}
	return &body.Data[0], nil
}

// GetPredictions returns the broadcaster's predictions, newest first.
func (c *Client) GetPredictions(ctx context.Context, auth Auth, broadcasterID string, first int) ([]Prediction, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	if first <= 0 {
		first = 1
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("first", strconv.Itoa(first))
	var body struct {
		Data []Prediction `json:"data"`
	}
	if err := c.doJSON(ctx, auth, http.MethodGet, "/predictions", q, nil, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

// EndPrediction resolves a running prediction with the winning outcome.
func (c *Client) EndPrediction(ctx context.Context, auth Auth, broadcasterID, predictionID, winningOutcomeID string) (*Prediction, error) {
	return c.patchPrediction(ctx, auth, broadcasterID, predictionID, StatusResolved, winningOutcomeID)
}

// CancelPrediction cancels a running prediction and refunds channel points.
func (c *Client) CancelPrediction(ctx context.Context, auth Auth, broadcasterID, predictionID string) (*Prediction, error) {
	return c.patchPrediction(ctx, auth, broadcasterID, predictionID, StatusCanceled, "")
}

func (c *Client) patchPrediction(ctx context.Context, auth Auth, broadcasterID, predictionID, status, winningOutcomeID string) (*Prediction, error) {
	if broadcasterID == "" {
		return nil, fmt.Errorf("broadcasterID empty")
	}
	if predictionID == "" {
		return nil, fmt.Errorf("predictionID empty")
	}
	payload := struct {
		BroadcasterID    string `json:"broadcaster_id"`
		ID               string `json:"id"`
		Status           string `json:"status"`
		WinningOutcomeID string `json:"winning_outcome_id,omitempty"`
	}{broadcasterID, predictionID, status, winningOutcomeID}

	var body struct {
		Data []Prediction `json:"data"`
	}
	if err := c.doJSON(ctx, auth, http.MethodPatch, "/predictions", nil, payload, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, fmt.Errorf("empty prediction response")
	}
	return &body.Data[0], nil
}

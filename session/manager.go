// Package session owns the lifetime of an authenticated Twitch prediction
// session: bootstrapping broadcaster identity from stored settings, keeping a
// snapshot of the latest prediction fresh via a background poller, and
// exposing the start/end/cancel action facade. All Helix calls go through the
// refresh-on-401 wrapper so an expired access token costs one retry, never a
// failed user action.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onnwee/prediction-studio/backend/settings"
	"github.com/onnwee/prediction-studio/backend/telemetry"
	"github.com/onnwee/prediction-studio/backend/twitchapi"
)

// Prediction window bounds enforced before a create request leaves the
// process. Mirrors the Helix limits so a bad window never costs a round trip.
const (
	MinWindowSeconds     = 30
	MaxWindowSeconds     = 1800
	DefaultWindowSeconds = 90
)

// DefaultPollInterval is how often the poller re-fetches the latest
// prediction when no interval is configured.
const DefaultPollInterval = 60 * time.Second

// ErrNotReady is returned by actions attempted before the session has
// credentials, tokens, and a resolved broadcaster id.
var ErrNotReady = errors.New("session not ready: missing credentials, tokens, or broadcaster id")

// Notifier receives prediction lifecycle events, e.g. for chat announcements.
// Implementations must not block; calls are made with the manager lock
// released.
type Notifier interface {
	PredictionStarted(title string, outcomes []string)
	PredictionResolved(title, winningOutcome string)
	PredictionCanceled(title string)
}

// Manager coordinates settings, the Helix client, and the prediction
// snapshot. Safe for concurrent use.
type Manager struct {
	store  *settings.Store
	client *twitchapi.Client

	// PollInterval and Notifier may be set before StartPoller/first action.
	PollInterval time.Duration
	Notifier     Notifier

	mu       sync.Mutex
	snapshot *twitchapi.Prediction
	applied  uint64 // sequence of the fetch that produced the snapshot

	seq atomic.Uint64 // issued to each fetch before it starts
}

// NewManager wires a manager over the settings store and Helix client.
func NewManager(store *settings.Store, client *twitchapi.Client) *Manager {
	return &Manager{store: store, client: client, PollInterval: DefaultPollInterval}
}

// Client returns the underlying Helix/OAuth client, e.g. for the server's
// auth-code exchange.
func (m *Manager) Client() *twitchapi.Client {
	return m.client
}

// Ready reports whether authenticated Helix calls may be attempted.
func (m *Manager) Ready() bool {
	return m.store.Current().SessionReady()
}

// Snapshot returns a copy of the latest known prediction, or nil when none
// has been observed.
func (m *Manager) Snapshot() *twitchapi.Prediction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil
	}
	cp := *m.snapshot
	cp.Outcomes = append([]twitchapi.Outcome(nil), m.snapshot.Outcomes...)
	return &cp
}

// Bootstrap brings the session up from whatever settings are on disk:
// resolve the broadcaster id if missing, fetch the latest prediction, then
// persist settings once so any tokens rotated along the way survive a
// restart. Missing credentials or tokens are not errors; the session simply
// stays not-ready until the UI completes OAuth.
func (m *Manager) Bootstrap(ctx context.Context) error {
	s := m.store.Current()
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "session"))

	if !s.CredentialsReady() {
		log.Info("bootstrap skipped: client id, secret, or channel name not configured")
		telemetry.UpdateSessionReadyGauge(false)
		return nil
	}
	if s.AccessToken == "" || s.RefreshToken == "" {
		log.Info("bootstrap skipped: no user tokens yet, waiting for oauth")
		telemetry.UpdateSessionReadyGauge(false)
		return nil
	}

	// Token rotations and the resolved broadcaster id accumulate in the
	// local copy; one Update at the end writes them through together.
	defer func() {
		if err := m.store.Update(func(cur *settings.Settings) {
			cur.AccessToken = s.AccessToken
			cur.RefreshToken = s.RefreshToken
			cur.BroadcasterID = s.BroadcasterID
		}); err != nil {
			log.Error("bootstrap settings persist failed", slog.Any("err", err))
		}
		telemetry.UpdateSessionReadyGauge(m.Ready())
	}()

	refresh := m.localRefresh(&s)

	if s.BroadcasterID == "" {
		var user *twitchapi.User
		err := twitchapi.DoWithRefresh(ctx, s.AccessToken, refresh, func(ctx context.Context, token string) error {
			var callErr error
			user, callErr = m.client.GetUser(ctx, twitchapi.Auth{ClientID: s.ClientID, AccessToken: token}, s.ChannelName)
			return callErr
		})
		if err != nil {
			return fmt.Errorf("resolve broadcaster %q: %w", s.ChannelName, err)
		}
		s.BroadcasterID = user.ID
		log.Info("broadcaster resolved", slog.String("channel", s.ChannelName), slog.String("broadcaster_id", user.ID))
	}

	var preds []twitchapi.Prediction
	seq := m.seq.Add(1)
	err := twitchapi.DoWithRefresh(ctx, s.AccessToken, refresh, func(ctx context.Context, token string) error {
		var callErr error
		preds, callErr = m.client.GetPredictions(ctx, twitchapi.Auth{ClientID: s.ClientID, AccessToken: token}, s.BroadcasterID, 1)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("fetch latest prediction: %w", err)
	}
	if len(preds) > 0 {
		m.apply(seq, &preds[0])
		log.Info("prediction snapshot loaded", slog.String("id", preds[0].ID), slog.String("status", preds[0].Status))
	} else {
		log.Info("no predictions on channel yet")
	}
	return nil
}

// StartPoller runs the background snapshot refresher until ctx is canceled.
func (m *Manager) StartPoller(ctx context.Context) {
	interval := m.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	slog.Info("prediction poller starting", slog.Duration("interval", interval), slog.String("component", "session"))
	m.pollOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("prediction poller stopped", slog.String("component", "session"))
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	if !m.Ready() {
		return
	}
	telemetry.PollCycles.Inc()
	telemetry.TimeFunc(telemetry.PollDuration, func() {
		if err := m.RefreshSnapshot(ctx); err != nil {
			telemetry.PollFailures.Inc()
			slog.Warn("prediction poll failed, keeping last snapshot", slog.Any("err", err), slog.String("component", "session"))
		}
	})
}

// RefreshSnapshot fetches the latest prediction and replaces the snapshot,
// unless a newer fetch or action already landed while this one was in flight.
func (m *Manager) RefreshSnapshot(ctx context.Context) error {
	s := m.store.Current()
	if !s.SessionReady() {
		return ErrNotReady
	}
	seq := m.seq.Add(1)
	var preds []twitchapi.Prediction
	err := m.do(ctx, func(ctx context.Context, auth twitchapi.Auth) error {
		var callErr error
		preds, callErr = m.client.GetPredictions(ctx, auth, s.BroadcasterID, 1)
		return callErr
	})
	if err != nil {
		return err
	}
	if len(preds) == 0 {
		return nil
	}
	m.apply(seq, &preds[0])
	return nil
}

// apply installs p as the snapshot if seq is newer than what produced the
// current one. Stale responses from slow fetches are discarded.
func (m *Manager) apply(seq uint64, p *twitchapi.Prediction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq < m.applied {
		slog.Debug("discarding stale prediction fetch", slog.Uint64("seq", seq), slog.Uint64("applied", m.applied), slog.String("component", "session"))
		return
	}
	m.applied = seq
	m.snapshot = p
}

// StartPrediction validates the draft locally, creates the prediction, and
// re-fetches the snapshot. The create response itself is never merged; the
// follow-up fetch is the source of truth.
func (m *Manager) StartPrediction(ctx context.Context, title string, outcomes []string, windowSeconds int) (*twitchapi.Prediction, error) {
	if title == "" {
		return nil, errors.New("prediction title is empty")
	}
	if len(outcomes) < 2 {
		return nil, fmt.Errorf("prediction needs at least 2 outcomes, got %d", len(outcomes))
	}
	if windowSeconds == 0 {
		windowSeconds = DefaultWindowSeconds
	}
	if windowSeconds < MinWindowSeconds || windowSeconds > MaxWindowSeconds {
		return nil, fmt.Errorf("prediction window %ds outside [%d,%d]", windowSeconds, MinWindowSeconds, MaxWindowSeconds)
	}
	s := m.store.Current()
	if !s.SessionReady() {
		return nil, ErrNotReady
	}

	var created *twitchapi.Prediction
	var err error
	telemetry.TimeFunc(telemetry.ActionDuration, func() {
		err = m.do(ctx, func(ctx context.Context, auth twitchapi.Auth) error {
			var callErr error
			created, callErr = m.client.CreatePrediction(ctx, auth, twitchapi.CreatePredictionRequest{
				BroadcasterID:    s.BroadcasterID,
				Title:            title,
				Outcomes:         outcomes,
				PredictionWindow: windowSeconds,
			})
			return callErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("start prediction: %w", err)
	}
	telemetry.PredictionsStarted.Inc()
	if m.Notifier != nil {
		m.Notifier.PredictionStarted(title, outcomes)
	}
	if rerr := m.RefreshSnapshot(ctx); rerr != nil {
		slog.Warn("snapshot refresh after start failed", slog.Any("err", rerr), slog.String("component", "session"))
	}
	return created, nil
}

// EndPrediction resolves a running prediction with the winning outcome. The
// snapshot status is patched optimistically so the UI flips without waiting
// for the next poll.
func (m *Manager) EndPrediction(ctx context.Context, predictionID, winningOutcomeID string) (*twitchapi.Prediction, error) {
	if predictionID == "" || winningOutcomeID == "" {
		return nil, errors.New("prediction id and winning outcome id are required")
	}
	s := m.store.Current()
	if !s.SessionReady() {
		return nil, ErrNotReady
	}

	var resolved *twitchapi.Prediction
	var err error
	telemetry.TimeFunc(telemetry.ActionDuration, func() {
		err = m.do(ctx, func(ctx context.Context, auth twitchapi.Auth) error {
			var callErr error
			resolved, callErr = m.client.EndPrediction(ctx, auth, s.BroadcasterID, predictionID, winningOutcomeID)
			return callErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("end prediction: %w", err)
	}
	telemetry.PredictionsResolved.Inc()
	m.patchStatus(predictionID, twitchapi.StatusResolved, winningOutcomeID)
	if m.Notifier != nil {
		m.Notifier.PredictionResolved(m.titleFor(predictionID, resolved), m.outcomeTitle(resolved, winningOutcomeID))
	}
	return resolved, nil
}

// CancelPrediction cancels a running prediction and refunds channel points.
func (m *Manager) CancelPrediction(ctx context.Context, predictionID string) (*twitchapi.Prediction, error) {
	if predictionID == "" {
		return nil, errors.New("prediction id is required")
	}
	s := m.store.Current()
	if !s.SessionReady() {
		return nil, ErrNotReady
	}

	var canceled *twitchapi.Prediction
	var err error
	telemetry.TimeFunc(telemetry.ActionDuration, func() {
		err = m.do(ctx, func(ctx context.Context, auth twitchapi.Auth) error {
			var callErr error
			canceled, callErr = m.client.CancelPrediction(ctx, auth, s.BroadcasterID, predictionID)
			return callErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("cancel prediction: %w", err)
	}
	telemetry.PredictionsCanceled.Inc()
	m.patchStatus(predictionID, twitchapi.StatusCanceled, "")
	if m.Notifier != nil {
		m.Notifier.PredictionCanceled(m.titleFor(predictionID, canceled))
	}
	return canceled, nil
}

// ChannelInfo returns the current game and title of the configured channel.
func (m *Manager) ChannelInfo(ctx context.Context) (*twitchapi.ChannelInfo, error) {
	s := m.store.Current()
	if !s.SessionReady() {
		return nil, ErrNotReady
	}
	var info *twitchapi.ChannelInfo
	err := m.do(ctx, func(ctx context.Context, auth twitchapi.Auth) error {
		var callErr error
		info, callErr = m.client.GetChannelInfo(ctx, auth, s.BroadcasterID)
		return callErr
	})
	return info, err
}

// patchStatus optimistically updates the snapshot after a successful
// end/cancel. The patch takes a fresh sequence number so an older in-flight
// poll cannot clobber it.
func (m *Manager) patchStatus(predictionID, status, winningOutcomeID string) {
	seq := m.seq.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil || m.snapshot.ID != predictionID {
		return
	}
	if seq < m.applied {
		return
	}
	m.applied = seq
	m.snapshot.Status = status
	if winningOutcomeID != "" {
		m.snapshot.WinningOutcomeID = winningOutcomeID
	}
}

func (m *Manager) titleFor(predictionID string, fromAPI *twitchapi.Prediction) string {
	if fromAPI != nil && fromAPI.Title != "" {
		return fromAPI.Title
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot != nil && m.snapshot.ID == predictionID {
		return m.snapshot.Title
	}
	return ""
}

func (m *Manager) outcomeTitle(p *twitchapi.Prediction, outcomeID string) string {
	if p == nil {
		return ""
	}
	for _, o := range p.Outcomes {
		if o.ID == outcomeID {
			return o.Title
		}
	}
	return ""
}

// do runs call under the refresh-on-401 wrapper, re-reading settings so a
// token rotated by a concurrent caller is picked up, and writing rotated
// tokens through to disk immediately.
func (m *Manager) do(ctx context.Context, call func(ctx context.Context, auth twitchapi.Auth) error) error {
	s := m.store.Current()
	return twitchapi.DoWithRefresh(ctx, s.AccessToken,
		func(ctx context.Context) (string, error) {
			cur := m.store.Current()
			tok, err := m.client.RefreshToken(ctx, cur.ClientID, cur.ClientSecret, cur.RefreshToken)
			if err != nil {
				telemetry.TokenRefreshFailures.Inc()
				return "", err
			}
			telemetry.TokenRefreshes.Inc()
			if uerr := m.store.Update(func(st *settings.Settings) {
				st.AccessToken = tok.AccessToken
				if tok.RefreshToken != "" {
					st.RefreshToken = tok.RefreshToken
				}
			}); uerr != nil {
				return "", fmt.Errorf("persist rotated tokens: %w", uerr)
			}
			slog.Info("access token refreshed", slog.String("component", "session"))
			return tok.AccessToken, nil
		},
		func(ctx context.Context, token string) error {
			return call(ctx, twitchapi.Auth{ClientID: s.ClientID, AccessToken: token})
		})
}

// localRefresh is the bootstrap variant of the refresh func: rotated tokens
// land in the local settings copy and are persisted once when bootstrap
// finishes, instead of one write per rotation.
func (m *Manager) localRefresh(s *settings.Settings) twitchapi.RefreshFunc {
	return func(ctx context.Context) (string, error) {
		tok, err := m.client.RefreshToken(ctx, s.ClientID, s.ClientSecret, s.RefreshToken)
		if err != nil {
			telemetry.TokenRefreshFailures.Inc()
			return "", err
		}
		telemetry.TokenRefreshes.Inc()
		s.AccessToken = tok.AccessToken
		if tok.RefreshToken != "" {
			s.RefreshToken = tok.RefreshToken
		}
		return tok.AccessToken, nil
	}
}

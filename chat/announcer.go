// Package chat announces prediction lifecycle events to the channel's Twitch
// chat over IRC. The announcer is optional: when no bot credentials are
// configured the session simply runs without one.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// Announcer posts prediction events as chat messages. Implements the session
// notifier interface.
type Announcer struct {
	channel string

	mu        sync.Mutex
	client    *twitch.Client
	connected bool
}

// NewAnnouncer builds an announcer for channel using the bot account. The
// oauth token needs the chat:edit scope and the usual "oauth:" prefix.
func NewAnnouncer(botUsername, oauthToken, channel string) *Announcer {
	return &Announcer{
		channel: channel,
		client:  twitch.NewClient(botUsername, oauthToken),
	}
}

// Start connects to Twitch IRC and blocks until ctx is canceled. Meant to run
// in its own goroutine; connection errors are logged, not fatal.
func (a *Announcer) Start(ctx context.Context) {
	a.client.OnConnect(func() {
		a.mu.Lock()
		a.connected = true
		a.mu.Unlock()
		slog.Info("chat announcer connected", slog.String("channel", a.channel), slog.String("component", "chat"))
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := a.client.Disconnect(); err != nil {
			slog.Debug("chat disconnect", slog.Any("err", err), slog.String("component", "chat"))
		}
		close(done)
	}()

	a.client.Join(a.channel)
	if err := a.client.Connect(); err != nil {
		slog.Error("twitch chat connect error", slog.Any("err", err), slog.String("component", "chat"))
	}
	a.mu.Lock()
	a.connected = false
	a.mu.Unlock()
	<-done
}

// PredictionStarted announces a new prediction and its options.
func (a *Announcer) PredictionStarted(title string, outcomes []string) {
	a.say("Prediction started: " + title + " | Options: " + strings.Join(outcomes, " vs "))
}

// PredictionResolved announces the winning outcome.
func (a *Announcer) PredictionResolved(title, winningOutcome string) {
	msg := "Prediction resolved: " + title
	if winningOutcome != "" {
		msg += " | Winner: " + winningOutcome
	}
	a.say(msg)
}

// PredictionCanceled announces the cancellation and point refund.
func (a *Announcer) PredictionCanceled(title string) {
	msg := "Prediction canceled, channel points refunded."
	if title != "" {
		msg = "Prediction canceled: " + title + " | Channel points refunded."
	}
	a.say(msg)
}

// say drops the message when not connected so a dead IRC link never queues
// announcements indefinitely or blocks a prediction action.
func (a *Announcer) say(msg string) {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		slog.Debug("chat announcement dropped, not connected", slog.String("msg", msg), slog.String("component", "chat"))
		return
	}
	a.client.Say(a.channel, msg)
}

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnouncer_DropsWhenDisconnected(t *testing.T) {
	a := NewAnnouncer("bot", "oauth:tok", "somechannel")

	// Must not panic or block with no IRC connection.
	a.PredictionStarted("who wins", []string{"me", "chat"})
	a.PredictionResolved("who wins", "me")
	a.PredictionCanceled("who wins")

	assert.False(t, a.connected)
}

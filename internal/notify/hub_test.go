package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSubscribeAndBroadcast(t *testing.T) {
	h := NewHub(4)
	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	h.Broadcast("message_processed", MessageProcessed{From: "+911234567890"})

	env := <-ch
	assert.Equal(t, "message_processed", env.Event)
	payload, ok := env.Payload.(MessageProcessed)
	require.True(t, ok)
	assert.Equal(t, "+911234567890", payload.From)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(1)
	id, ch := h.Subscribe()
	h.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.SubscriberCount())

	// Unsubscribing twice is harmless.
	h.Unsubscribe(id)
}

func TestHubPrunesSlowSubscriber(t *testing.T) {
	h := NewHub(1)
	_, ch := h.Subscribe()

	h.Broadcast("e", 1)
	h.Broadcast("e", 2)

	assert.Equal(t, 0, h.SubscriberCount())

	// First event is still readable, then the channel is closed.
	env, open := <-ch
	require.True(t, open)
	assert.Equal(t, 1, env.Payload)
	_, open = <-ch
	assert.False(t, open)
}

func TestHubBroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub(2)
	_, ch1 := h.Subscribe()
	_, ch2 := h.Subscribe()

	h.Broadcast("e", "x")

	assert.Equal(t, "x", (<-ch1).Payload)
	assert.Equal(t, "x", (<-ch2).Payload)
}

func TestFanoutBroadcastsInOrder(t *testing.T) {
	var events []string
	a := sinkFunc(func(event string, _ any) { events = append(events, "a:"+event) })
	b := sinkFunc(func(event string, _ any) { events = append(events, "b:"+event) })

	Fanout{a, b}.Broadcast("e", nil)
	assert.Equal(t, []string{"a:e", "b:e"}, events)
}

type sinkFunc func(event string, payload any)

func (f sinkFunc) Broadcast(event string, payload any) { f(event, payload) }

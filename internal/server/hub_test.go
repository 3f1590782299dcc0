package server

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubSendToUnknownConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())

	err := hub.Send("nope", []byte("payload"))
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestHubSendDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := &Client{id: "c1", send: make(chan []byte, 1), hub: hub}
	hub.clients[client.id] = client

	require.NoError(t, hub.Send("c1", []byte("one")))
	// The queue is full now; delivery is dropped, not blocked on.
	require.ErrorIs(t, hub.Send("c1", []byte("two")), ErrSendBufferFull)
}

func TestHubSendToClosedClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := &Client{id: "c1", send: make(chan []byte, 1), hub: hub, closed: true}
	hub.clients[client.id] = client

	require.ErrorIs(t, hub.Send("c1", []byte("payload")), ErrNotConnected)
}

func TestHubDropClientIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	client := &Client{id: "c1", send: make(chan []byte, 1), hub: hub}
	hub.clients[client.id] = client

	hub.dropClient(client)
	require.Empty(t, hub.clients)

	// A second drop must not close the channel twice or panic.
	hub.dropClient(client)
}

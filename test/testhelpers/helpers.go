// Package testhelpers provides shared utilities for the relay integration
// tests: spinning up a fully wired gateway on an ephemeral port, dialing
// WebSocket clients, and decoding protocol frames.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"disclone/internal/config"
	"disclone/internal/relay"
	"disclone/internal/server"
)

// StartRelayServer wires a registry, relay, hub, and gateway exactly as
// cmd/server does and serves them from an httptest server. Cleanup stops
// everything when the test finishes.
func StartRelayServer(t *testing.T, origins []string) (ts *httptest.Server, wsURL string) {
	t.Helper()

	log := zap.NewNop()
	hub := server.NewHub(log)
	registry := relay.NewRegistry()
	rel := relay.New(registry, hub, log)
	hub.Bind(rel)
	go hub.Run()

	cfg := config.Default()
	cfg.AllowedOrigins = origins

	gateway := server.NewGateway(hub, rel, cfg, log)
	ts = httptest.NewServer(gateway.Routes())
	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})

	wsURL = "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return ts, wsURL
}

// Dial opens a WebSocket connection with the given Origin header and
// registers cleanup.
func Dial(t *testing.T, wsURL, origin string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dialing %s (status %d): %v", wsURL, status, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendJoin issues a join event for the given user and channel.
func SendJoin(t *testing.T, conn *websocket.Conn, userID, channelID string) {
	t.Helper()
	writeFrame(t, conn, relay.EventJoin, relay.JoinPayload{UserID: userID, ChannelID: channelID})
}

// SendChat issues a sendMessage event, requesting an ack when ackID is nonzero.
func SendChat(t *testing.T, conn *websocket.Conn, userID, channelID, text string, ackID int64) {
	t.Helper()
	writeFrame(t, conn, relay.EventSendMessage, relay.SendMessagePayload{
		Message:   text,
		UserID:    userID,
		ChannelID: channelID,
		AckID:     ackID,
	})
}

func writeFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := relay.EncodeFrame(event, data)
	if err != nil {
		t.Fatalf("encoding %s frame: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("writing %s frame: %v", event, err)
	}
}

// ReadFrame reads and decodes the next frame, failing the test after timeout.
func ReadFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) relay.Frame {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("setting read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	var frame relay.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("decoding frame %q: %v", raw, err)
	}
	return frame
}

// ReadMessagePayload reads the next frame and requires it to be a "message"
// event, returning the decoded payload.
func ReadMessagePayload(t *testing.T, conn *websocket.Conn) relay.MessagePayload {
	t.Helper()

	frame := ReadFrame(t, conn, 2*time.Second)
	if frame.Event != relay.EventMessage {
		t.Fatalf("expected message frame, got %q", frame.Event)
	}
	var payload relay.MessagePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		t.Fatalf("decoding message payload: %v", err)
	}
	return payload
}

// ReadRoomDataPayload reads the next frame and requires it to be a "roomData"
// event, returning the decoded snapshot.
func ReadRoomDataPayload(t *testing.T, conn *websocket.Conn) relay.RoomDataPayload {
	t.Helper()

	frame := ReadFrame(t, conn, 2*time.Second)
	if frame.Event != relay.EventRoomData {
		t.Fatalf("expected roomData frame, got %q", frame.Event)
	}
	var payload relay.RoomDataPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		t.Fatalf("decoding roomData payload: %v", err)
	}
	return payload
}

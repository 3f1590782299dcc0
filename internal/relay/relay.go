package relay

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one encoded outbound frame to a single connection. The
// transport gateway implements it. Room targeting is derived from the
// registry, so the relay only ever needs send-to-one.
type Sender interface {
	Send(connID string, payload []byte) error
}

// Relay is the protocol layer translating join, sendMessage, and disconnect
// events into registry mutations and targeted broadcasts. Inbound events may
// arrive concurrently from many connections; the relay serializes them so
// every membership snapshot is broadcast in mutation order.
type Relay struct {
	mu       sync.Mutex
	registry *Registry
	sender   Sender
	log      *zap.Logger

	now func() time.Time // injectable for tests
}

// New wires a relay to its registry, its outbound sender, and a logger.
func New(registry *Registry, sender Sender, log *zap.Logger) *Relay {
	return &Relay{
		registry: registry,
		sender:   sender,
		log:      log,
		now:      time.Now,
	}
}

// Join registers the connection in the room and announces it. A second join
// on the same connection is a room switch: the old room observes
// leave-semantics (announcement plus a corrected membership snapshot) before
// the new room observes the join. The joining connection receives its welcome
// before any peer sees the join announcement.
func (r *Relay) Join(connID, userID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, prev := r.registry.Add(connID, userID, roomID)
	if prev != nil && prev.RoomID != roomID {
		r.broadcast(prev.RoomID, "", EventMessage, r.systemMessage(fmt.Sprintf("%s has left!", prev.UserID)))
		r.broadcastRoomData(prev.RoomID)
	}

	r.send(connID, EventMessage, r.systemMessage("Welcome to the channel!"))
	if prev == nil || prev.RoomID != roomID {
		r.broadcast(roomID, connID, EventMessage, r.systemMessage(fmt.Sprintf("%s has joined!", userID)))
	}
	r.broadcastRoomData(roomID)

	r.log.Info("connection joined room",
		zap.String("conn", connID),
		zap.String("user", userID),
		zap.String("room", roomID))
}

// SendMessage broadcasts a chat message to every connection currently in the
// room, the sender included; the sender's own UI relies on the echo. The
// timestamp is assigned here. It returns once the broadcast has been issued,
// so the transport can acknowledge the originator afterwards.
func (r *Relay) SendMessage(connID, userID, roomID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registry.Get(connID); !ok {
		// The original client never sends before joining; tolerate it anyway.
		r.log.Debug("sendMessage from unregistered connection",
			zap.String("conn", connID),
			zap.String("user", userID))
	}

	r.broadcast(roomID, "", EventMessage, MessagePayload{
		User:      userID,
		Text:      text,
		CreatedAt: r.now(),
	})
}

// Disconnect removes the connection from the registry. Removing an unknown
// connection is a no-op. Otherwise the departed room's remaining members
// receive a leave announcement and a corrected membership snapshot; the
// departed connection itself is not notified.
func (r *Relay) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.registry.Remove(connID)
	if !ok {
		return
	}

	r.broadcast(conn.RoomID, "", EventMessage, r.systemMessage(fmt.Sprintf("%s has left!", conn.UserID)))
	r.broadcastRoomData(conn.RoomID)

	r.log.Info("connection left room",
		zap.String("conn", connID),
		zap.String("user", conn.UserID),
		zap.String("room", conn.RoomID))
}

// MembersOf exposes the registry's membership snapshot for roomID.
func (r *Relay) MembersOf(roomID string) []string {
	return r.registry.MembersOf(roomID)
}

func (r *Relay) systemMessage(text string) MessagePayload {
	return MessagePayload{User: SystemUser, Text: text, CreatedAt: r.now()}
}

// send delivers one event to one connection. Delivery failures are logged and
// swallowed: presence state is ephemeral and delivery is at-most-once.
func (r *Relay) send(connID, event string, data any) {
	payload, err := EncodeFrame(event, data)
	if err != nil {
		r.log.Error("encoding outbound frame", zap.String("event", event), zap.Error(err))
		return
	}
	if err := r.sender.Send(connID, payload); err != nil {
		r.log.Debug("outbound delivery failed",
			zap.String("conn", connID),
			zap.String("event", event),
			zap.Error(err))
	}
}

// broadcast delivers one event to every connection in roomID, skipping
// exclude when nonempty. Each delivery is isolated from the others' failures.
func (r *Relay) broadcast(roomID, exclude, event string, data any) {
	for _, connID := range r.registry.ConnectionsIn(roomID) {
		if exclude != "" && connID == exclude {
			continue
		}
		r.send(connID, event, data)
	}
}

func (r *Relay) broadcastRoomData(roomID string) {
	r.broadcast(roomID, "", EventRoomData, RoomDataPayload{
		Room:  roomID,
		Users: r.registry.MembersOf(roomID),
	})
}

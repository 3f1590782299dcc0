// Package relay implements the in-memory presence relay: the registry mapping
// live connections to (user, channel) pairs and the join/leave/broadcast
// protocol that keeps every connection in a channel informed of chat messages
// and membership changes.
package relay

import (
	"encoding/json"
	"time"
)

// Event names carried in the wire envelope. Inbound events arrive from
// clients; outbound events are emitted by the relay.
const (
	EventJoin        = "join"
	EventSendMessage = "sendMessage"
	EventMessage     = "message"
	EventRoomData    = "roomData"
	EventAck         = "ack"
)

// SystemUser is the reserved user identifier for server-generated
// announcements (welcome, joined, left).
const SystemUser = "system"

// Frame is the envelope every WebSocket text frame carries: an event name and
// an event-specific payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the inbound payload of a "join" event.
type JoinPayload struct {
	UserID    string `json:"userId" validate:"required"`
	ChannelID string `json:"channelId" validate:"required"`
}

// SendMessagePayload is the inbound payload of a "sendMessage" event. AckID,
// when nonzero, is echoed back in an "ack" frame once the broadcast has been
// issued.
type SendMessagePayload struct {
	Message   string `json:"message" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	ChannelID string `json:"channelId" validate:"required"`
	AckID     int64  `json:"ackId,omitempty"`
}

// MessagePayload is the outbound payload of a "message" event, used for both
// chat messages and system announcements (User == SystemUser).
type MessagePayload struct {
	User      string    `json:"user"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomDataPayload is the outbound payload of a "roomData" event: the
// membership snapshot of one room.
type RoomDataPayload struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// AckPayload is the outbound payload of an "ack" event confirming a
// sendMessage to its originator.
type AckPayload struct {
	AckID int64 `json:"ackId"`
}

// EncodeFrame marshals an event name and payload into a wire frame.
func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

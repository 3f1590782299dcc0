package server

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"disclone/internal/config"
	"disclone/internal/relay"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// validate checks inbound payload structs against their validate tags.
var validate = validator.New()

// Client is one live WebSocket session. It owns the connection, a buffered
// send queue drained by the write pump, and the dispatch of inbound frames to
// the presence relay. Its id is the opaque connection identifier the relay
// tracks presence under.
type Client struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	hub   *Hub
	relay *relay.Relay
	addr  string

	closed         bool
	maxMessageSize int64
	limiter        *tokenBucket
	log            *zap.Logger
}

// NewClient wraps an upgraded WebSocket connection. The connection id is a
// fresh uuid, unique per live session.
func NewClient(conn *websocket.Conn, hub *Hub, rel *relay.Relay, cfg *config.Config, log *zap.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		relay:          rel,
		addr:           remoteAddr(conn),
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newTokenBucket(cfg.RateLimitBurst, cfg.RateLimitRefill),
		log:            log,
	}
}

// ID returns the connection identifier assigned to this session.
func (c *Client) ID() string {
	return c.id
}

func remoteAddr(conn *websocket.Conn) string {
	if conn == nil {
		return "unknown"
	}
	return conn.RemoteAddr().String()
}

func (c *Client) readPump() {
	defer func() {
		// During hub shutdown nobody drains unregister anymore; the context
		// guard keeps the pump from blocking forever.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("closing connection in read pump", zap.Error(err))
		}
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("setting read deadline", zap.String("conn", c.id), zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.allow() {
			c.log.Warn("rate limit exceeded; discarding frame",
				zap.String("conn", c.id), zap.String("addr", c.addr))
			continue
		}

		c.dispatch(raw)
	}
}

// dispatch decodes one inbound envelope and routes it to the relay. Invalid
// frames are logged and dropped; they never tear down the connection.
func (c *Client) dispatch(raw []byte) {
	var frame relay.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Warn("invalid frame", zap.String("conn", c.id), zap.Error(err))
		return
	}

	switch frame.Event {
	case relay.EventJoin:
		var p relay.JoinPayload
		if !c.decodePayload(frame, &p) {
			return
		}
		c.relay.Join(c.id, p.UserID, p.ChannelID)

	case relay.EventSendMessage:
		var p relay.SendMessagePayload
		if !c.decodePayload(frame, &p) {
			return
		}
		c.relay.SendMessage(c.id, p.UserID, p.ChannelID, p.Message)
		// The relay has issued the broadcast; now confirm to the sender.
		if p.AckID != 0 {
			c.sendAck(p.AckID)
		}

	default:
		c.log.Warn("unknown event", zap.String("conn", c.id), zap.String("event", frame.Event))
	}
}

func (c *Client) decodePayload(frame relay.Frame, dst any) bool {
	if err := json.Unmarshal(frame.Data, dst); err != nil {
		c.log.Warn("invalid payload",
			zap.String("conn", c.id), zap.String("event", frame.Event), zap.Error(err))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		c.log.Warn("payload failed validation",
			zap.String("conn", c.id), zap.String("event", frame.Event), zap.Error(err))
		return false
	}
	return true
}

func (c *Client) sendAck(ackID int64) {
	payload, err := relay.EncodeFrame(relay.EventAck, relay.AckPayload{AckID: ackID})
	if err != nil {
		c.log.Error("encoding ack", zap.Error(err))
		return
	}
	if err := c.hub.Send(c.id, payload); err != nil {
		c.log.Debug("ack delivery failed", zap.String("conn", c.id), zap.Error(err))
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded maximum size",
			zap.String("conn", c.id), zap.Int64("limit", c.maxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug("client disconnected", zap.String("conn", c.id), zap.Error(err))
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug("connection closed", zap.String("conn", c.id), zap.Error(err))
	default:
		c.log.Warn("websocket read error", zap.String("conn", c.id), zap.Error(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("closing connection in write pump", zap.Error(err))
		}
	}()

	for {
		select {
		case <-c.hub.ctx.Done():
			return

		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Warn("setting write deadline", zap.String("conn", c.id), zap.Error(err))
				return
			}
			if !ok {
				// The hub closed the send channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.writeFrame(payload) {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug("ping failed", zap.String("conn", c.id), zap.Error(err))
				}
				return
			}
		}
	}
}

// writeFrame writes one frame. Frames are not coalesced: every payload is a
// self-contained JSON envelope and clients decode them one per message.
func (c *Client) writeFrame(payload []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug("write failed", zap.String("conn", c.id), zap.Error(err))
		}
		return false
	}
	return true
}

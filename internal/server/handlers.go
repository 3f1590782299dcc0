package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"disclone/internal/config"
	"disclone/internal/relay"
)

// Gateway is the HTTP surface of the relay: the WebSocket upgrade endpoint,
// the health check, and the built-in test page.
type Gateway struct {
	hub      *Hub
	relay    *relay.Relay
	cfg      *config.Config
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewGateway builds the gateway with an upgrader enforcing the configured
// origin policy.
func NewGateway(hub *Hub, rel *relay.Relay, cfg *config.Config, log *zap.Logger) *Gateway {
	policy := NewOriginPolicy(cfg.AllowedOrigins, log)
	return &Gateway{
		hub:   hub,
		relay: rel,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.Check,
		},
		log: log,
	}
}

// HandleWS upgrades the request and registers the new client with the hub,
// which launches its pump goroutines. The client is not in any room until it
// issues a join.
func (g *Gateway) HandleWS(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, g.hub, g.relay, g.cfg, g.log)
	g.hub.register <- client
}

// Health reports that the relay is up.
func (g *Gateway) Health(c *gin.Context) {
	c.String(http.StatusOK, "disclone relay is running")
}

// Members returns the current membership snapshot for one channel, the same
// list pushed to clients in roomData frames.
func (g *Gateway) Members(c *gin.Context) {
	room := c.Param("channel")
	c.JSON(http.StatusOK, relay.RoomDataPayload{
		Room:  room,
		Users: g.relay.MembersOf(room),
	})
}

// Package server hosts the WebSocket transport gateway: the hub owning all
// live client connections, the per-connection read/write pumps, and the HTTP
// layer that upgrades requests and hands events to the presence relay.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"disclone/internal/relay"
)

// ErrNotConnected is returned by Hub.Send when the target connection is no
// longer registered with the hub.
var ErrNotConnected = errors.New("connection not registered")

// ErrSendBufferFull is returned by Hub.Send when the target connection's send
// queue is full. The peer is considered slow or dead; the frame is dropped
// rather than stalling the caller.
var ErrSendBufferFull = errors.New("send buffer full")

// Hub owns every live WebSocket client, keyed by connection id, and delivers
// outbound frames on behalf of the relay. It is constructed explicitly in
// main and passed where needed; there is no package-level instance.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client

	relay *relay.Relay
	log   *zap.Logger

	mu     sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub ready to manage connections. Bind must be called with
// the relay before Run so disconnects reach the presence registry.
func NewHub(log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Bind attaches the presence relay the hub reports disconnects to. Called
// once during wiring, before Run.
func (h *Hub) Bind(r *relay.Relay) {
	h.relay = r
}

// Run is the hub's event loop, processing registrations and deregistrations
// until Shutdown cancels it. Run in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("nil client registration; skipping")
				continue
			}
			h.mu.Lock()
			client.closed = false
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client connected",
				zap.String("conn", client.id),
				zap.String("addr", client.addr),
				zap.Int("total", total))

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.dropClient(client)
		}
	}
}

// Send delivers one encoded frame to the connection identified by connID. It
// never blocks: a full send queue counts as a delivery failure. Implements
// relay.Sender.
func (h *Hub) Send(connID string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok || client.closed {
		return ErrNotConnected
	}

	select {
	case client.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// dropClient removes a client from the table, closes its send channel, and
// tells the relay the connection is gone. Safe against duplicate unregisters.
func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	total := len(h.clients)
	h.mu.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)

	if h.relay != nil {
		h.relay.Disconnect(client.id)
	}
	h.log.Info("client disconnected",
		zap.String("conn", client.id),
		zap.String("addr", client.addr),
		zap.Int("total", total))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("closing client connection",
					zap.String("conn", client.id), zap.Error(err))
			}
		}
	}
	h.log.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown stops the event loop, closes every connection, and waits for the
// pump goroutines to finish or the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timed out")
		return context.DeadlineExceeded
	}
}

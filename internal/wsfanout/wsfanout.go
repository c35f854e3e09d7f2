// Package wsfanout serves the /ws endpoint (C8, spec.md §4.8, §6, §9):
// one WebSocket connection per client, who subscribes and unsubscribes to
// any number of named channels by sending control frames, and receives a
// single multiplexed stream of event frames back. A client whose outbound
// buffer can't drain within the write deadline is evicted so one slow
// reader never backs up the rest of the fleet.
package wsfanout

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/nodenestor/hiveminddb/internal/bus"
)

// Upgrader is shared across connections; origin checking is left to the
// caller's reverse proxy / CORS layer, matching how the teacher's HTTP
// server handles CORS at the gin middleware level rather than per socket.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// controlFrame is a client->server subscribe/unsubscribe request
// (spec.md §6: `{type:"subscribe", channels:[...]}`).
type controlFrame struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

// outFrame is a server->client event frame (spec.md §6:
// `{type, channel, payload}`).
type outFrame struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
}

// Handler upgrades requests to /ws and multiplexes bus channels per
// connection.
type Handler struct {
	bus          *bus.Bus
	writeTimeout time.Duration
}

// New creates a Handler reading events from b. writeTimeout bounds every
// outbound frame write; a client that cannot keep up is disconnected
// rather than buffered indefinitely (spec.md §9).
func New(b *bus.Bus, writeTimeout time.Duration) *Handler {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Handler{bus: b, writeTimeout: writeTimeout}
}

// Serve upgrades the request and runs the connection until the client
// disconnects or the request context ends.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newConnection(ctx, conn, h.writeTimeout)
	defer c.closeAll()

	go c.readLoop(h.bus)
	c.writeLoop()
}

// connection tracks one client's live channel subscriptions and funnels
// every subscribed receiver's events into a single outbound queue so the
// write loop only ever touches the socket from one goroutine.
type connection struct {
	ctx          context.Context
	conn         *websocket.Conn
	writeTimeout time.Duration

	out    chan outFrame
	subs   map[string]*bus.Receiver
	cancel map[string]context.CancelFunc
}

func newConnection(ctx context.Context, conn *websocket.Conn, writeTimeout time.Duration) *connection {
	return &connection{
		ctx:          ctx,
		conn:         conn,
		writeTimeout: writeTimeout,
		out:          make(chan outFrame, 64),
		subs:         make(map[string]*bus.Receiver),
		cancel:       make(map[string]context.CancelFunc),
	}
}

// readLoop processes subscribe/unsubscribe control frames from the client
// until the connection closes.
func (c *connection) readLoop(b *bus.Bus) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Debug("ws fanout: dropping malformed control frame", "err", err)
			continue
		}
		switch frame.Type {
		case "subscribe":
			for _, ch := range frame.Channels {
				c.subscribe(b, ch)
			}
		case "unsubscribe":
			for _, ch := range frame.Channels {
				c.unsubscribe(ch)
			}
		}
	}
}

func (c *connection) subscribe(b *bus.Bus, channel string) {
	if _, exists := c.subs[channel]; exists {
		return
	}
	recv := b.Subscribe(channel)
	ctx, cancel := context.WithCancel(c.ctx)
	c.subs[channel] = recv
	c.cancel[channel] = cancel
	go c.forward(ctx, channel, recv)
}

func (c *connection) unsubscribe(channel string) {
	if cancel, exists := c.cancel[channel]; exists {
		cancel()
		delete(c.cancel, channel)
	}
	if recv, exists := c.subs[channel]; exists {
		recv.Close()
		delete(c.subs, channel)
	}
}

// forward pumps one channel's receiver into the connection's shared
// outbound queue until ctx is canceled or the receiver closes.
func (c *connection) forward(ctx context.Context, channel string, recv *bus.Receiver) {
	for {
		received, ok := recv.Receive(ctx)
		if !ok {
			return
		}
		select {
		case c.out <- outFrame{Type: string(received.Event.Kind), Channel: channel, Payload: received.Event.Payload}:
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop owns the socket write side: it drains c.out and evicts the
// client if a write exceeds the configured deadline.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame := <-c.out:
			data, err := json.Marshal(frame)
			if err != nil {
				log.Warn("ws fanout: marshal event", "channel", frame.Channel, "err", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("ws fanout: evicting slow or closed client", "err", err)
				return
			}
		}
	}
}

func (c *connection) closeAll() {
	for channel := range c.cancel {
		c.unsubscribe(channel)
	}
}

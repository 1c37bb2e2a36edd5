// Package hub fans broadcast events out to websocket viewers. Events
// arrive either from the Redis bridge (multi-instance deployments) or
// directly through the local gateway, and are forwarded verbatim to
// every socket subscribed to the event's game.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cinetrivia/internal/broadcast"
	"cinetrivia/pkg/logger"
	"cinetrivia/pkg/redis"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

type message struct {
	gameID  string
	payload []byte
}

// StateSource returns the last known game-state payload for a game;
// ok is false when none is available.
type StateSource func(ctx context.Context, gameID string) ([]byte, bool)

// Hub routes broadcast payloads to the websocket clients of each game.
type Hub struct {
	clients    map[*Client]bool
	messages   chan message
	register   chan *Client
	unregister chan *Client
	state      StateSource

	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// New creates a hub. allowedOrigins bounds websocket upgrades the same
// way CORS bounds the REST surface.
func New(allowedOrigins []string, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		messages:   make(chan message, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: log,
	}
}

// SetStateSource installs a lookup for the last known game state. A
// client connecting mid-session receives it as its first frame. Must be
// set before the hub starts serving connections.
func (h *Hub) SetStateSource(source StateSource) {
	h.state = source
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, candidate := range allowed {
			if candidate == "*" || strings.EqualFold(candidate, origin) {
				return true
			}
		}
		return false
	}
}

// Run owns the client set until ctx is cancelled. Registration,
// teardown and fan-out all pass through here, so no lock is shared
// with the websocket goroutines.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.WithFields(map[string]interface{}{
				"game_id": client.gameID,
				"clients": len(h.clients),
			}).Debug("Websocket client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.WithFields(map[string]interface{}{
					"game_id": client.gameID,
					"clients": len(h.clients),
				}).Debug("Websocket client disconnected")
			}

		case msg := <-h.messages:
			for client := range h.clients {
				if client.gameID != msg.gameID {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Slow consumer, drop the connection rather than
					// stalling the whole fan-out.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Broadcast queues a payload for every client of a game.
func (h *Hub) Broadcast(gameID string, payload []byte) {
	select {
	case h.messages <- message{gameID: gameID, payload: payload}:
	default:
		h.logger.WithField("game_id", gameID).Warn("Hub message queue full, dropping event")
	}
}

// Bridge subscribes to the per-game event channels and forwards every
// message into the hub. It returns when ctx is cancelled.
func (h *Hub) Bridge(ctx context.Context, client *redis.Client) {
	sub := client.PSubscribe(ctx, client.KeyBuilder.PatternEventsChannels())
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			gameID := gameIDFromChannel(msg.Channel)
			if gameID == "" {
				continue
			}
			h.Broadcast(gameID, []byte(msg.Payload))
		}
	}
}

// gameIDFromChannel extracts the game ID from a channel name shaped
// like "{env}:game:{id}:events".
func gameIDFromChannel(channel string) string {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[1] != "game" || parts[3] != "events" {
		return ""
	}
	return parts[2]
}

// ServeWS upgrades the request and subscribes the socket to a game's
// events. The socket is read-only for the client; anything it sends
// besides pongs is discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		gameID: gameID,
	}

	// Queue the last known state before registering so it is the first
	// frame, ahead of any broadcast that races the connect.
	if h.state != nil {
		if payload, ok := h.state(r.Context(), gameID); ok {
			client.send <- payload
		}
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Client is one websocket subscriber scoped to a single game.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("Websocket read error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// LocalGateway feeds events straight into the hub, bypassing Redis.
// Used in single-instance deployments without a Redis URL. It keeps
// the last game-state payload per game so new connections get the
// same first-frame replay Redis deployments get from the snapshot key.
type LocalGateway struct {
	hub *Hub

	mu    sync.Mutex
	state map[string][]byte
}

func NewLocalGateway(h *Hub) *LocalGateway {
	return &LocalGateway{hub: h, state: make(map[string][]byte)}
}

func (g *LocalGateway) Publish(ctx context.Context, event broadcast.Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Type == broadcast.EventGameStateUpdate {
		g.mu.Lock()
		g.state[event.GameID] = payload
		g.mu.Unlock()
	}
	g.hub.Broadcast(event.GameID, payload)
	return nil
}

// Snapshot returns the last game-state payload published for a game.
func (g *LocalGateway) Snapshot(ctx context.Context, gameID string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	payload, ok := g.state[gameID]
	return payload, ok
}

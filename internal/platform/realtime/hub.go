// Package realtime pushes live collection snapshots to WebSocket clients.
// Clients subscribe to named feeds (patients, visits, case notes, ...) and
// receive the full re-sorted collection whenever it changes, so a client can
// render the feed without issuing follow-up reads.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Event is a message pushed to subscribed clients. Type is "snapshot" for
// collection payloads and "error" for feed-level failures.
type Event struct {
	Type      string          `json:"type"`
	Feed      string          `json:"feed"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound control message from a client.
type ClientMessage struct {
	Action string   `json:"action"`
	Feeds  []string `json:"feeds"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a single connected WebSocket peer.
type Client struct {
	ID    string
	Feeds []string
	Send  chan []byte
	conn  Conn
}

// Hub tracks connected clients and their feed subscriptions.
type Hub struct {
	mu    sync.RWMutex
	feeds map[string]map[*Client]struct{}
	all   map[*Client]struct{}

	log zerolog.Logger

	// onSubscribe is invoked after a client subscribes to feeds, so the
	// broker can deliver an initial snapshot to just that client.
	onSubscribe func(client *Client, feeds []string)
}

// NewHub creates an empty Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		feeds: make(map[string]map[*Client]struct{}),
		all:   make(map[*Client]struct{}),
		log:   log.With().Str("component", "realtime").Logger(),
	}
}

// SetSubscribeHook registers a callback fired after each subscribe.
func (h *Hub) SetSubscribeHook(fn func(client *Client, feeds []string)) {
	h.onSubscribe = fn
}

// Register adds a client and subscribes it to its initial feeds.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.all[client] = struct{}{}
	for _, feed := range client.Feeds {
		if h.feeds[feed] == nil {
			h.feeds[feed] = make(map[*Client]struct{})
		}
		h.feeds[feed][client] = struct{}{}
	}
	h.mu.Unlock()

	if h.onSubscribe != nil && len(client.Feeds) > 0 {
		h.onSubscribe(client, client.Feeds)
	}
}

// Unregister removes a client from all feeds and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, feed := range client.Feeds {
		if subs, ok := h.feeds[feed]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.feeds, feed)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
}

// Subscribe adds feeds to an already-registered client.
func (h *Hub) Subscribe(client *Client, feeds []string) {
	h.mu.Lock()
	for _, feed := range feeds {
		if h.feeds[feed] == nil {
			h.feeds[feed] = make(map[*Client]struct{})
		}
		h.feeds[feed][client] = struct{}{}
	}
	client.Feeds = append(client.Feeds, feeds...)
	h.mu.Unlock()

	if h.onSubscribe != nil && len(feeds) > 0 {
		h.onSubscribe(client, feeds)
	}
}

// Unsubscribe removes feeds from an already-registered client.
func (h *Hub) Unsubscribe(client *Client, feeds []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeSet := make(map[string]struct{}, len(feeds))
	for _, f := range feeds {
		removeSet[f] = struct{}{}
		if subs, ok := h.feeds[f]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.feeds, f)
			}
		}
	}

	remaining := client.Feeds[:0]
	for _, f := range client.Feeds {
		if _, rm := removeSet[f]; !rm {
			remaining = append(remaining, f)
		}
	}
	client.Feeds = remaining
}

// ProcessMessage dispatches an inbound control message.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Feeds)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Feeds)
	}
}

// Broadcast sends an event to every client subscribed to the event's feed.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("feed", event.Feed).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.feeds[event.Feed] {
		select {
		case client.Send <- data:
		default:
			// Slow client; drop rather than block the broadcaster.
		}
	}
}

// SendTo delivers an event to a single client.
func (h *Hub) SendTo(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("feed", event.Feed).Msg("marshal event")
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// FeedCount returns the number of clients subscribed to a feed.
func (h *Hub) FeedCount(feed string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.feeds[feed])
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware gates the upgrade request.
	},
}

// Handler upgrades HTTP connections and runs the per-client pumps.
type Handler struct {
	hub          *Hub
	onConnect    func()
	onDisconnect func()
}

// NewHandler creates a Handler bound to the hub. The connect/disconnect
// callbacks feed the realtime client gauge and may be nil.
func NewHandler(hub *Hub, onConnect, onDisconnect func()) *Handler {
	return &Handler{hub: hub, onConnect: onConnect, onDisconnect: onDisconnect}
}

// HandleConnect upgrades the request, registers the client, and starts the
// read/write pumps. Initial feeds may be given as a comma-free repeated
// "feed" query parameter.
func (wh *Handler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:    uuid.New().String(),
		Feeds: c.QueryParams()["feed"],
		Send:  make(chan []byte, 256),
		conn:  &gorillaConn{ws},
	}

	wh.hub.Register(client)
	if wh.onConnect != nil {
		wh.onConnect()
	}

	go wh.writePump(client, ws)
	go wh.readPump(client, ws)

	return nil
}

func (wh *Handler) readPump(client *Client, ws *gorillaws.Conn) {
	defer func() {
		wh.hub.Unregister(client)
		ws.Close()
		if wh.onDisconnect != nil {
			wh.onDisconnect()
		}
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // ignore malformed control messages
		}
		wh.hub.ProcessMessage(client, msg)
	}
}

func (wh *Handler) writePump(client *Client, ws *gorillaws.Conn) {
	defer ws.Close()
	for message := range client.Send {
		if err := ws.WriteMessage(gorillaws.TextMessage, message); err != nil {
			break
		}
	}
}

type gorillaConn struct {
	conn *gorillaws.Conn
}

func (g *gorillaConn) ReadMessage() (int, []byte, error) {
	return g.conn.ReadMessage()
}

func (g *gorillaConn) WriteMessage(messageType int, data []byte) error {
	return g.conn.WriteMessage(messageType, data)
}

func (g *gorillaConn) Close() error {
	return g.conn.Close()
}

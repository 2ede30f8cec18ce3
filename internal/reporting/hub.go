package reporting

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/micro-ha/airplane-scheduler/internal/domain/airplane"
)

const (
	EventToggleOutcome = "toggle_outcome"
	EventStateChanged  = "state_changed"

	clientBuffer = 16
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 45 * time.Second
)

// Event is the envelope written to every websocket subscriber.
type Event struct {
	Type   string          `json:"type"`
	Action string          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data"`
	At     time.Time       `json:"at"`
}

// ChangedPayload mirrors the app level airplane mode changed broadcast.
type ChangedPayload struct {
	Enabled      bool                   `json:"enabled"`
	ScheduleName string                 `json:"schedule_name"`
	Success      bool                   `json:"success"`
	Outcome      airplane.ToggleOutcome `json:"outcome"`
}

// StatePayload is published when the airplane flag changes.
type StatePayload struct {
	Enabled bool `json:"enabled"`
}

// Hub broadcasts events to websocket subscribers. Slow subscribers are dropped.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: map[*hubClient]struct{}{},
	}
}

// Report publishes the app level changed broadcast for an outcome.
func (h *Hub) Report(ctx context.Context, outcome airplane.ToggleOutcome) {
	name := outcome.ScheduleName
	if name == "" {
		name = UnknownScheduleName
	}
	h.publish(EventToggleOutcome, airplane.AppBroadcastChanged, ChangedPayload{
		Enabled:      bool(outcome.Requested),
		ScheduleName: name,
		Success:      outcome.Success,
		Outcome:      outcome,
	})
}

// PublishState announces the current airplane flag.
func (h *Hub) PublishState(enabled bool) {
	h.publish(EventStateChanged, "", StatePayload{Enabled: enabled})
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) publish(eventType, action string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("encode event failed", "type", eventType, "err", err)
		}
		return
	}
	body, err := json.Marshal(Event{Type: eventType, Action: action, Data: data, At: time.Now().UTC()})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- body:
		default:
			if h.logger != nil {
				h.logger.Warn("dropping slow event subscriber", "remote", client.conn.RemoteAddr().String())
			}
			h.removeLocked(client)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("event subscriber upgrade failed", "err", err)
		}
		return
	}
	client := &hubClient{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	h.readLoop(client)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}

func (h *Hub) remove(client *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *hubClient) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.once.Do(func() { close(client.send) })
}

// readLoop discards inbound messages and keeps the pong deadline fresh.
func (h *Hub) readLoop(client *hubClient) {
	defer func() {
		h.remove(client)
		_ = client.conn.Close()
	}()
	_ = client.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(client *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case body, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

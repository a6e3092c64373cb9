package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Hub fans selection snapshots and seek requests out to connected players.
// Slow clients drop messages instead of blocking state transitions.
type Hub struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*wsClient
}

type wsClient struct {
	id   string
	send chan []byte
}

type wsEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{logger: logger, clients: make(map[string]*wsClient)}
}

func (h *Hub) Broadcast(event string, data any) {
	msg, err := json.Marshal(wsEvent{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		close(c.send)
		delete(h.clients, c.id)
	}
}

// Bridge implements the playback collaborator over the hub: seek requests
// are pushed to connected players, and the most recent reported tick backs
// the position getters.
type Bridge struct {
	hub *Hub

	mu       sync.Mutex
	position float64
	unit     int
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) RequestSeek(seconds float64) {
	b.hub.Broadcast("seek", map[string]float64{"seconds": seconds})
}

func (b *Bridge) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

func (b *Bridge) ActiveUnit() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unit
}

func (b *Bridge) applyTick(seconds float64, unit int) {
	b.mu.Lock()
	b.position = seconds
	b.unit = unit
	b.mu.Unlock()
}

// Run forwards selection snapshots to connected players until ctx ends.
// Call it once, in its own goroutine, after the controller exists.
func (h *Handler) Run(ctx context.Context) {
	updates := h.ctrl.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case sel := <-updates:
			h.hub.Broadcast("selection", sel)
		}
	}
}

type tickMessage struct {
	Type    string  `json:"type"`
	Seconds float64 `json:"seconds"`
	Unit    int     `json:"unit"`
}

// sync upgrades to a WebSocket. The player pushes position ticks; the hub
// pushes selection snapshots and seek requests back.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}

	client := &wsClient{id: uuid.New().String(), send: make(chan []byte, 64)}
	h.hub.add(client)
	h.logger.Debug().Str("client", client.id).Msg("sync client connected")

	ctx := r.Context()

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg tickMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "tick" {
			continue
		}
		h.bridge.applyTick(msg.Seconds, msg.Unit)
		h.ctrl.Tick(msg.Seconds, msg.Unit)
	}

	h.hub.remove(client)
	h.logger.Debug().Str("client", client.id).Msg("sync client disconnected")
}

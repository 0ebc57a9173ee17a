package ws

import (
	"strings"
	"sync"
	"time"

	"citai-analytics-service/internal/exportjobs"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type wsRealtimeClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsRealtimeClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

func (c *wsRealtimeClient) writeControl(messageType int, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, nil, deadline)
}

// Hub fans export job updates out to the dashboards of one restaurant.
type Hub struct {
	logger *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*wsRealtimeClient]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*wsRealtimeClient]struct{}),
	}
}

func (h *Hub) subscribe(restaurantID string, client *wsRealtimeClient) (unsubscribe func()) {
	key := strings.TrimSpace(restaurantID)
	if key == "" {
		return func() {}
	}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*wsRealtimeClient]struct{})
	}
	h.subs[key][client] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		clients := h.subs[key]
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subs, key)
		}
		h.mu.Unlock()
	}
}

// Subscribers reports how many sockets listen for restaurantID.
func (h *Hub) Subscribers(restaurantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[strings.TrimSpace(restaurantID)])
}

func (h *Hub) broadcast(restaurantID string, message any) {
	key := strings.TrimSpace(restaurantID)
	if key == "" {
		return
	}

	h.mu.RLock()
	clientsMap := h.subs[key]
	clients := make([]*wsRealtimeClient, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			h.logger.Debug("dropping export status subscriber", zap.String("restaurantId", key), zap.Error(err))
			_ = c.conn.Close()
			h.mu.Lock()
			if current := h.subs[key]; current != nil {
				delete(current, c)
				if len(current) == 0 {
					delete(h.subs, key)
				}
			}
			h.mu.Unlock()
		}
	}
}

func statusMessage(job exportjobs.Job) map[string]any {
	return map[string]any{"type": "export.status", "data": exportjobs.ViewOf(job)}
}

// NotifyExportStatus pushes the job's state to this process's subscribers.
func (h *Hub) NotifyExportStatus(restaurantID string, job exportjobs.Job) {
	h.broadcast(restaurantID, statusMessage(job))
}

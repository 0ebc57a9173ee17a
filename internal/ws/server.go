package ws

import (
	"net/http"
	"time"

	"citai-analytics-service/internal/auth"
	"citai-analytics-service/internal/middleware"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	Lookup    middleware.MemberLookup
	JWTSecret string
	Hub       *Hub
	Logger    *zap.Logger
	Heartbeat time.Duration
}

func New(lookup middleware.MemberLookup, jwtSecret string, hub *Hub, logger *zap.Logger, heartbeat time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Server{Lookup: lookup, JWTSecret: jwtSecret, Hub: hub, Logger: logger, Heartbeat: heartbeat}
}

// MerchantExportsWS streams export.status messages for the caller's
// restaurant. Browsers cannot set headers on the handshake, so the token
// comes from the query string.
func (s *Server) MerchantExportsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := auth.ParseBearerToken(r.URL.Query().Get("token"))
	authCtx, authErr := middleware.Authenticate(r, s.Lookup, s.JWTSecret, token)
	if authErr != nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}

	client := &wsRealtimeClient{conn: conn}
	unsubscribe := s.Hub.subscribe(authCtx.RestaurantID, client)
	defer unsubscribe()

	_ = client.writeJSON(map[string]any{
		"type":         "hello",
		"restaurantId": authCtx.RestaurantID,
		"serverTime":   time.Now().UTC(),
	})

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-clientClosed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := client.writeControl(websocket.PingMessage, time.Now().Add(5*time.Second)); err != nil {
				s.Logger.Debug("export status ping failed", zap.String("restaurantId", authCtx.RestaurantID), zap.Error(err))
				return
			}
		}
	}
}

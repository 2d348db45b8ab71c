package handlers

import (
	"net/http"

	"chat-server/internal/auth"
	"chat-server/internal/engine"
	"chat-server/internal/transport"
	"chat-server/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	engine      *engine.Engine
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, eng *engine.Engine) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		engine:      eng,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the connection and attaches it to the engine.
// A missing or invalid token degrades to a guest identity; the handshake
// never fails for bad credentials.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity := auth.Guest()
	if tokenStr := r.URL.Query().Get("token"); tokenStr != "" {
		if verified, err := h.authService.Verify(tokenStr); err == nil {
			identity = verified
		} else {
			logger.Debug("token rejected, continuing as %s: %v", identity.Name, err)
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	transport.NewClient(conn, h.engine, identity).Start()
}

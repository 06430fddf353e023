package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/studyhub-api/internal/handler/helper"
	"github.com/yourusername/studyhub-api/internal/websocket"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// WSHandler обрабатывает WebSocket-соединения сессий с аватаром
type WSHandler struct {
	relay    *websocket.Manager
	upgrader gorillaws.Upgrader
	log      *logger.Logger
}

// NewWSHandler создает обработчик WebSocket.
// allowedOrigins синхронизирован с CORS.
func NewWSHandler(relay *websocket.Manager, allowedOrigins []string, log *logger.Logger) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	h := &WSHandler{relay: relay, log: log}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Пустой Origin - не браузерный клиент
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			log.Warn("websocket: rejected origin", "origin", origin)
			return false
		},
		EnableCompression: true,
	}
	return h
}

// HandleConnection подключает клиента к событиям сессии
// GET /ws/liveavatar?session_id=...&token=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session_id"})
		return
	}

	// Доступ проверяется до апгрейда, чтобы вернуть обычный HTTP-код
	events, cancel, err := h.relay.Subscribe(c.Request.Context(), userID, sessionID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	h.log.Info("websocket connected", "user_id", userID, "session_id", sessionID)
	h.relay.Serve(c.Request.Context(), h.relay.NewClient(conn, userID, sessionID), events, cancel)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/handler/helper"
	"github.com/yourusername/studyhub-api/internal/service/liveavatar"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// AvatarUseCase - операции с сессиями живого аватара
type AvatarUseCase interface {
	Open(ctx context.Context, userID uuid.UUID, language string) (*liveavatar.Opened, error)
	HandleEvent(ctx context.Context, userID, sessionID uuid.UUID, ev liveavatar.Event) (liveavatar.State, error)
	AppendMessage(ctx context.Context, userID, sessionID uuid.UUID, role, text string) (liveavatar.State, error)
	Stop(ctx context.Context, userID, sessionID uuid.UUID) error
	Transcript(ctx context.Context, userID, sessionID uuid.UUID) ([]entity.AvatarMessage, error)
	ActiveCount() int
}

// RelayStats - счетчики WebSocket-ретранслятора
type RelayStats interface {
	Snapshot() map[string]interface{}
}

// LiveAvatarHandler обрабатывает HTTP-запросы сессий с аватаром
type LiveAvatarHandler struct {
	avatars AvatarUseCase
	relay   RelayStats
	log     *logger.Logger
}

// NewLiveAvatarHandler создает обработчик
func NewLiveAvatarHandler(avatars AvatarUseCase, relay RelayStats, log *logger.Logger) *LiveAvatarHandler {
	return &LiveAvatarHandler{avatars: avatars, relay: relay, log: log}
}

// OpenSessionRequest представляет запрос на открытие сессии
type OpenSessionRequest struct {
	Language string `json:"language" binding:"omitempty,max=16"`
}

// MessageRequest представляет реплику транскрипта
type MessageRequest struct {
	Role string `json:"role" binding:"required,oneof=user avatar"`
	Text string `json:"text" binding:"required"`
}

// OpenSession открывает сессию и возвращает токен провайдера
// POST /api/liveavatar/session
func (h *LiveAvatarHandler) OpenSession(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	var req OpenSessionRequest
	// Тело необязательно
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	opened, err := h.avatars.Open(c.Request.Context(), userID, req.Language)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, opened)
}

// PostEvent применяет событие жизненного цикла или транскрипции
// POST /api/liveavatar/session/:id/events
func (h *LiveAvatarHandler) PostEvent(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	var ev liveavatar.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		badRequest(c, err)
		return
	}
	sessionID := helper.ParamUUID(c, "avatarSessionID")
	state, err := h.avatars.HandleEvent(c.Request.Context(), userID, sessionID, ev)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "state": state})
}

// PostMessage добавляет реплику в транскрипт
// POST /api/liveavatar/session/:id/messages
func (h *LiveAvatarHandler) PostMessage(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sessionID := helper.ParamUUID(c, "avatarSessionID")
	state, err := h.avatars.AppendMessage(c.Request.Context(), userID, sessionID, req.Role, req.Text)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sessionID, "state": state})
}

// StopSession завершает сессию. Повторный вызов безопасен.
// POST /api/liveavatar/session/:id/stop
func (h *LiveAvatarHandler) StopSession(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	if err := h.avatars.Stop(c.Request.Context(), userID, helper.ParamUUID(c, "avatarSessionID")); err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": liveavatar.StateIdle})
}

// Transcript возвращает сохраненный транскрипт сессии
// GET /api/liveavatar/session/:id/transcript
func (h *LiveAvatarHandler) Transcript(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	messages, err := h.avatars.Transcript(c.Request.Context(), userID, helper.ParamUUID(c, "avatarSessionID"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// Metrics возвращает число активных сессий и счетчики ретранслятора
// GET /api/admin/liveavatar/metrics
func (h *LiveAvatarHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active_sessions": h.avatars.ActiveCount(),
		"relay":           h.relay.Snapshot(),
	})
}

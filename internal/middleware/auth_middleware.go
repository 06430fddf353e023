package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/auth"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

const (
	// ContextUserID - ключ gin-контекста с uuid пользователя
	ContextUserID = "user_id"
	// ContextRole - ключ gin-контекста с ролью из токена
	ContextRole = "role"

	// accessTokenCookie - кука, которую выставляет веб-клиент провайдера аутентификации
	accessTokenCookie = "access_token"
)

// AdminChecker определяет, является ли пользователь администратором
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	verifier *auth.Verifier
	admins   AdminChecker
	log      *logger.Logger
}

// NewAuthMiddleware создает middleware аутентификации
func NewAuthMiddleware(verifier *auth.Verifier, admins AdminChecker, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, admins: admins, log: log}
}

// RequireAuth проверяет access-токен и кладет user_id в контекст.
// Токен ищется в заголовке Authorization, затем в куке; для WebSocket - в параметре token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, errType := tokenFromRequest(c)
		if token == "" {
			msg := "Unauthorized"
			if errType == "token_format" {
				msg = "Authorization header format must be Bearer {token}"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "error_type": errType})
			return
		}

		claims, err := m.verifier.Parse(token)
		if err != nil {
			if errors.Is(err, apperrors.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired", "error_type": "token_expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}
		userID, _ := claims.UserID()

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// AdminOnly проверяет роль администратора по профилю пользователя.
// Должен применяться ПОСЛЕ RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		isAdmin, err := m.admins.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			m.log.Error("admin check failed", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required"})
			return
		}
		c.Next()
	}
}

// UserID возвращает uuid пользователя, установленный RequireAuth
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func tokenFromRequest(c *gin.Context) (token string, errType string) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", "token_format"
		}
		return strings.TrimSpace(parts[1]), ""
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie != "" {
		return cookie, ""
	}
	// Браузер не может выставить заголовок при открытии WebSocket
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		if q := c.Query("token"); q != "" {
			return q, ""
		}
	}
	return "", "token_missing"
}

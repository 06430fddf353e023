package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
)

// AvatarSessionRepository определяет методы для сессий с живым аватаром и их транскриптов
type AvatarSessionRepository interface {
	Create(ctx context.Context, session *entity.AvatarSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.AvatarSession, error)
	UpdateState(ctx context.Context, id uuid.UUID, state string, errMsg string, endedAt *time.Time) error
	SetProviderSession(ctx context.Context, id uuid.UUID, providerSessionID string) error
	AppendMessage(ctx context.Context, message *entity.AvatarMessage) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]entity.AvatarMessage, error)
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

// AvatarSessionRepo реализует repository.AvatarSessionRepository
type AvatarSessionRepo struct {
	db *gorm.DB
}

// NewAvatarSessionRepo создает новый репозиторий сессий аватара
func NewAvatarSessionRepo(db *gorm.DB) *AvatarSessionRepo {
	return &AvatarSessionRepo{db: db}
}

func (r *AvatarSessionRepo) Create(ctx context.Context, session *entity.AvatarSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *AvatarSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.AvatarSession, error) {
	var session entity.AvatarSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// UpdateState сохраняет текущее состояние сессии
func (r *AvatarSessionRepo) UpdateState(ctx context.Context, id uuid.UUID, state string, errMsg string, endedAt *time.Time) error {
	updates := map[string]interface{}{"state": state}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	if endedAt != nil {
		updates["ended_at"] = *endedAt
	}
	return r.db.WithContext(ctx).Model(&entity.AvatarSession{}).Where("id = ?", id).Updates(updates).Error
}

func (r *AvatarSessionRepo) SetProviderSession(ctx context.Context, id uuid.UUID, providerSessionID string) error {
	return r.db.WithContext(ctx).Model(&entity.AvatarSession{}).Where("id = ?", id).Update("provider_session_id", providerSessionID).Error
}

// AppendMessage добавляет реплику в транскрипт
func (r *AvatarSessionRepo) AppendMessage(ctx context.Context, message *entity.AvatarMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListMessages возвращает транскрипт в хронологическом порядке
func (r *AvatarSessionRepo) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]entity.AvatarMessage, error) {
	var messages []entity.AvatarMessage
	if err := r.db.WithContext(ctx).Where("avatar_session_id = ?", sessionID).Order("created_at, id").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

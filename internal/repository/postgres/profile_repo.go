package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/database"
)

// ProfileRepo реализует repository.ProfileRepository
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo создает новый репозиторий профилей
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetByID возвращает профиль по ID пользователя
func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Create создает профиль
func (r *ProfileRepo) Create(ctx context.Context, profile *entity.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// Update сохраняет редактируемые поля профиля. Роль здесь не меняется.
func (r *ProfileRepo) Update(ctx context.Context, profile *entity.Profile) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]interface{}{
			"full_name":    profile.FullName,
			"avatar_url":   profile.AvatarURL,
			"country_code": profile.CountryCode,
			"updated_at":   gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

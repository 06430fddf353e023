package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/database"
)

// ContentRepo реализует repository.ContentRepository
type ContentRepo struct {
	db *gorm.DB
}

// NewContentRepo создает новый репозиторий учебных материалов
func NewContentRepo(db *gorm.DB) *ContentRepo {
	return &ContentRepo{db: db}
}

// Create создает материал
func (r *ContentRepo) Create(ctx context.Context, content *entity.Content) error {
	return r.db.WithContext(ctx).Create(content).Error
}

// GetByID возвращает материал по ID
func (r *ContentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Content, error) {
	var content entity.Content
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&content).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &content, nil
}

// List возвращает материалы страновой версии, новые первыми
func (r *ContentRepo) List(ctx context.Context, countryCode string, contentType entity.ContentType) ([]entity.Content, error) {
	var items []entity.Content
	q := r.db.WithContext(ctx).Where("country_code = ?", countryCode)
	if contentType != "" {
		q = q.Where("content_type = ?", contentType)
	}
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Delete удаляет материал. Материал, по которому уже проходили практику,
// не удаляется (apperrors.ErrConflict), чтобы сохранить историю сессий.
func (r *ContentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sessions int64
		if err := tx.Model(&entity.PracticeSession{}).Where("source_content_id = ?", id).Count(&sessions).Error; err != nil {
			return err
		}
		if sessions > 0 {
			return fmt.Errorf("%w: content has %d practice sessions", apperrors.ErrConflict, sessions)
		}

		result := tx.Where("id = ?", id).Delete(&entity.Content{})
		if result.Error != nil {
			if database.IsForeignKeyViolation(result.Error) {
				return fmt.Errorf("%w: content is referenced by practice sessions", apperrors.ErrConflict)
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// FlashcardRepo реализует repository.FlashcardRepository
type FlashcardRepo struct {
	db *gorm.DB
}

// NewFlashcardRepo создает новый репозиторий карточек
func NewFlashcardRepo(db *gorm.DB) *FlashcardRepo {
	return &FlashcardRepo{db: db}
}

func (r *FlashcardRepo) Create(ctx context.Context, card *entity.Flashcard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *FlashcardRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Flashcard, error) {
	var card entity.Flashcard
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *FlashcardRepo) ListByCountry(ctx context.Context, countryCode string) ([]entity.Flashcard, error) {
	var cards []entity.Flashcard
	if err := r.db.WithContext(ctx).Where("country_code = ?", countryCode).Order("created_at DESC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *FlashcardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Flashcard{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// CountryPackRepo реализует repository.CountryPackRepository
type CountryPackRepo struct {
	db *gorm.DB
}

// NewCountryPackRepo создает новый репозиторий страновых версий
func NewCountryPackRepo(db *gorm.DB) *CountryPackRepo {
	return &CountryPackRepo{db: db}
}

// ListActive возвращает активные страновые версии
func (r *CountryPackRepo) ListActive(ctx context.Context) ([]entity.CountryPack, error) {
	var packs []entity.CountryPack
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&packs).Error; err != nil {
		return nil, err
	}
	return packs, nil
}

// Exists проверяет, что активная страновая версия с таким кодом есть
func (r *CountryPackRepo) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.CountryPack{}).Where("code = ? AND is_active = ?", code, true).Count(&count).Error
	return count > 0, err
}

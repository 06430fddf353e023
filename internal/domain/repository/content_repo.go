package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
)

// ContentRepository определяет методы для работы с учебными материалами
type ContentRepository interface {
	Create(ctx context.Context, content *entity.Content) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Content, error)
	// List возвращает материалы страновой версии. Пустой contentType - все виды.
	List(ctx context.Context, countryCode string, contentType entity.ContentType) ([]entity.Content, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FlashcardRepository определяет методы для работы с карточками
type FlashcardRepository interface {
	Create(ctx context.Context, card *entity.Flashcard) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Flashcard, error)
	ListByCountry(ctx context.Context, countryCode string) ([]entity.Flashcard, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CountryPackRepository определяет методы для работы со страновыми версиями
type CountryPackRepository interface {
	ListActive(ctx context.Context) ([]entity.CountryPack, error)
	Exists(ctx context.Context, code string) (bool, error)
}

// ProfileRepository определяет методы для работы с профилями
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	// Create создает профиль. При гонке (профиль уже создан) возвращает apperrors.ErrConflict.
	Create(ctx context.Context, profile *entity.Profile) error
	Update(ctx context.Context, profile *entity.Profile) error
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/logger"
	"github.com/yourusername/studyhub-api/pkg/storage"
)

// CreateFlashcardInput - данные новой карточки
type CreateFlashcardInput struct {
	CountryCode string
	Front       string
	Back        string
	Image       *FileUpload
}

// FlashcardService - админские операции с карточками
type FlashcardService struct {
	cardRepo repository.FlashcardRepository
	content  *ContentService
	store    storage.Service
	log      *logger.Logger
}

// NewFlashcardService создает сервис карточек
func NewFlashcardService(cardRepo repository.FlashcardRepository, content *ContentService, store storage.Service, log *logger.Logger) *FlashcardService {
	return &FlashcardService{
		cardRepo: cardRepo,
		content:  content,
		store:    store,
		log:      log.With("component", "flashcards"),
	}
}

// List возвращает карточки страновой версии
func (s *FlashcardService) List(ctx context.Context, countryCode string) ([]entity.Flashcard, error) {
	code, err := s.content.requirePack(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	return s.cardRepo.ListByCountry(ctx, code)
}

// Create сохраняет карточку, загружая картинку при наличии
func (s *FlashcardService) Create(ctx context.Context, in CreateFlashcardInput) (*entity.Flashcard, error) {
	code, err := s.content.requirePack(ctx, in.CountryCode)
	if err != nil {
		return nil, err
	}
	card := &entity.Flashcard{
		CountryCode: code,
		Front:       strings.TrimSpace(in.Front),
		Back:        strings.TrimSpace(in.Back),
	}
	if card.Front == "" || card.Back == "" {
		return nil, fmt.Errorf("%w: front and back are required", apperrors.ErrValidation)
	}

	if in.Image != nil {
		key := ObjectKey(code, "cards", in.Image.Name)
		if err := s.store.Upload(ctx, storage.CategoryFlashcardImages, key, in.Image.Reader, in.Image.ContentType); err != nil {
			return nil, err
		}
		card.ImagePath = key
		card.ImageURL = s.store.PublicURL(storage.CategoryFlashcardImages, key)
	}

	if err := s.cardRepo.Create(ctx, card); err != nil {
		if card.ImagePath != "" {
			_ = s.store.Delete(ctx, storage.CategoryFlashcardImages, card.ImagePath)
		}
		return nil, fmt.Errorf("create flashcard: %w", err)
	}
	return card, nil
}

// Delete удаляет карточку и ее картинку
func (s *FlashcardService) Delete(ctx context.Context, id uuid.UUID) error {
	card, err := s.cardRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cardRepo.Delete(ctx, id); err != nil {
		return err
	}
	if card.ImagePath != "" {
		if err := s.store.Delete(ctx, storage.CategoryFlashcardImages, card.ImagePath); err != nil {
			s.log.Warn("flashcard deleted but image removal failed", "flashcard_id", id, "error", err)
		}
	}
	return nil
}

package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/logger"
	"github.com/yourusername/studyhub-api/pkg/storage"
)

// FileUpload - загружаемый файл
type FileUpload struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// CreateContentInput - данные нового учебного материала
type CreateContentInput struct {
	CountryCode string
	ContentType entity.ContentType
	Title       string
	Description string
	// FileURL - внешняя ссылка (для видео). Игнорируется, если передан File.
	FileURL string
	File    *FileUpload
}

// ContextInvalidator сбрасывает кешированный контекст промпта материала
type ContextInvalidator interface {
	InvalidateContext(ctx context.Context, contentID uuid.UUID) error
}

// ContentService - админские операции с учебными материалами в рамках страновой версии
type ContentService struct {
	contentRepo repository.ContentRepository
	packRepo    repository.CountryPackRepository
	store       storage.Service
	contexts    ContextInvalidator
	log         *logger.Logger
}

// NewContentService создает сервис материалов
func NewContentService(
	contentRepo repository.ContentRepository,
	packRepo repository.CountryPackRepository,
	store storage.Service,
	contexts ContextInvalidator,
	log *logger.Logger,
) *ContentService {
	return &ContentService{
		contentRepo: contentRepo,
		packRepo:    packRepo,
		store:       store,
		contexts:    contexts,
		log:         log.With("component", "content"),
	}
}

// BucketFor возвращает бакет для файлов данного вида материала.
// Видео хранятся только внешней ссылкой.
func BucketFor(ct entity.ContentType) (storage.Category, bool) {
	switch ct {
	case entity.ContentTypeNote:
		return storage.CategoryNotes, true
	case entity.ContentTypeExtra, entity.ContentTypePodcast:
		return storage.CategoryExtras, true
	case entity.ContentTypeStudyGuide:
		return storage.CategoryStudyGuides, true
	}
	return "", false
}

// ObjectKey формирует ключ объекта: страна/вид/uuid.расширение
func ObjectKey(countryCode, kind, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%s/%s%s", strings.ToLower(countryCode), kind, uuid.NewString(), ext)
}

// ListCountryPacks возвращает активные страновые версии
func (s *ContentService) ListCountryPacks(ctx context.Context) ([]entity.CountryPack, error) {
	return s.packRepo.ListActive(ctx)
}

func (s *ContentService) requirePack(ctx context.Context, code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("%w: country_code is required", apperrors.ErrValidation)
	}
	ok, err := s.packRepo.Exists(ctx, code)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: unknown country pack %q", apperrors.ErrValidation, code)
	}
	return code, nil
}

// List возвращает материалы страновой версии
func (s *ContentService) List(ctx context.Context, countryCode string, ct entity.ContentType) ([]entity.Content, error) {
	code, err := s.requirePack(ctx, countryCode)
	if err != nil {
		return nil, err
	}
	if ct != "" && !ct.Valid() {
		return nil, fmt.Errorf("%w: unknown content type %q", apperrors.ErrValidation, ct)
	}
	return s.contentRepo.List(ctx, code, ct)
}

// GetByID возвращает материал
func (s *ContentService) GetByID(ctx context.Context, id uuid.UUID) (*entity.Content, error) {
	return s.contentRepo.GetByID(ctx, id)
}

// Create загружает файл (если есть) и сохраняет запись о материале.
// Если запись сохранить не удалось, загруженный файл удаляется.
func (s *ContentService) Create(ctx context.Context, adminID uuid.UUID, in CreateContentInput) (*entity.Content, error) {
	code, err := s.requirePack(ctx, in.CountryCode)
	if err != nil {
		return nil, err
	}
	if !in.ContentType.Valid() {
		return nil, fmt.Errorf("%w: unknown content type %q", apperrors.ErrValidation, in.ContentType)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	content := &entity.Content{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CountryCode: code,
		ContentType: in.ContentType,
		CreatedBy:   &adminID,
	}

	switch {
	case in.File != nil:
		bucket, ok := BucketFor(in.ContentType)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot have an uploaded file", apperrors.ErrValidation, in.ContentType)
		}
		key := ObjectKey(code, string(in.ContentType), in.File.Name)
		if err := s.store.Upload(ctx, bucket, key, in.File.Reader, in.File.ContentType); err != nil {
			return nil, err
		}
		content.FileName = in.File.Name
		content.FilePath = key
		content.FileBucket = string(bucket)
		content.FileURL = s.store.PublicURL(bucket, key)
	case strings.TrimSpace(in.FileURL) != "":
		content.FileURL = strings.TrimSpace(in.FileURL)
	default:
		return nil, fmt.Errorf("%w: file or file_url is required", apperrors.ErrValidation)
	}

	if err := s.contentRepo.Create(ctx, content); err != nil {
		if content.FilePath != "" {
			if delErr := s.store.Delete(ctx, storage.Category(content.FileBucket), content.FilePath); delErr != nil {
				s.log.Warn("failed to remove orphaned upload", "key", content.FilePath, "error", delErr)
			}
		}
		return nil, fmt.Errorf("create content: %w", err)
	}

	s.log.Info("content created", "content_id", content.ID, "type", content.ContentType, "country", code, "admin_id", adminID)
	return content, nil
}

// Delete удаляет запись о материале и его файл
func (s *ContentService) Delete(ctx context.Context, id uuid.UUID) error {
	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.contentRepo.Delete(ctx, id); err != nil {
		return err
	}
	if content.FilePath != "" {
		if err := s.store.Delete(ctx, storage.Category(content.FileBucket), content.FilePath); err != nil {
			s.log.Warn("content row deleted but file removal failed", "content_id", id, "key", content.FilePath, "error", err)
		}
	}
	if s.contexts != nil {
		if err := s.contexts.InvalidateContext(ctx, id); err != nil {
			s.log.Warn("failed to drop cached prompt context", "content_id", id, "error", err)
		}
	}
	s.log.Info("content deleted", "content_id", id)
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/logger"
	"github.com/yourusername/studyhub-api/pkg/storage"
)

var allowedAvatarExt = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {}}

// UpdateProfileInput - редактируемые поля профиля. nil - поле не меняется.
type UpdateProfileInput struct {
	FullName    *string
	CountryCode *string
}

// ProfileService управляет профилями пользователей
type ProfileService struct {
	profileRepo repository.ProfileRepository
	packRepo    repository.CountryPackRepository
	store       storage.Service
	log         *logger.Logger
}

// NewProfileService создает сервис профилей
func NewProfileService(profileRepo repository.ProfileRepository, packRepo repository.CountryPackRepository, store storage.Service, log *logger.Logger) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		packRepo:    packRepo,
		store:       store,
		log:         log.With("component", "profile"),
	}
}

// GetOrCreate возвращает профиль, создавая профиль ученика при первом обращении
func (s *ProfileService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	profile = &entity.Profile{ID: userID, Role: entity.RoleStudent}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Параллельный запрос успел создать профиль
			return s.profileRepo.GetByID(ctx, userID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.log.Info("profile created", "user_id", userID)
	return profile, nil
}

// IsAdmin проверяет, что у пользователя роль администратора
func (s *ProfileService) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return profile.IsAdmin(), nil
}

// Update меняет имя и страновую версию
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*entity.Profile, error) {
	profile, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if len([]rune(name)) > 255 {
			return nil, fmt.Errorf("%w: full_name is too long", apperrors.ErrValidation)
		}
		profile.FullName = name
	}
	if in.CountryCode != nil {
		code := strings.ToLower(strings.TrimSpace(*in.CountryCode))
		if code != "" {
			ok, err := s.packRepo.Exists(ctx, code)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: unknown country pack %q", apperrors.ErrValidation, code)
			}
		}
		profile.CountryCode = code
	}
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UploadAvatar загружает картинку в бакет avatars и сохраняет ссылку в профиле
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uuid.UUID, file FileUpload) (*entity.Profile, error) {
	ext := strings.ToLower(path.Ext(file.Name))
	if _, ok := allowedAvatarExt[ext]; !ok {
		return nil, fmt.Errorf("%w: avatar must be an image (png, jpg, webp, gif)", apperrors.ErrValidation)
	}
	profile, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), ext)
	if err := s.store.Upload(ctx, storage.CategoryAvatars, key, file.Reader, file.ContentType); err != nil {
		return nil, err
	}
	profile.AvatarURL = s.store.PublicURL(storage.CategoryAvatars, key)
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		_ = s.store.Delete(ctx, storage.CategoryAvatars, key)
		return nil, err
	}
	return profile, nil
}

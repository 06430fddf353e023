package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yourusername/studyhub-api/internal/config"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// Category - логическое имя бакета
type Category string

const (
	CategoryNotes           Category = "notes"
	CategoryExtras          Category = "extras"
	CategoryFlashcardImages Category = "flashcard-images"
	CategoryStudyGuides     Category = "study-guides"
	CategoryAvatars         Category = "avatars"
)

// Service описывает операции с объектным хранилищем
type Service interface {
	Upload(ctx context.Context, category Category, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, category Category, key string) error
	Download(ctx context.Context, category Category, key string) (io.ReadCloser, error)
	PublicURL(category Category, key string) string
}

type gcsService struct {
	log           *logger.Logger
	client        *storage.Client
	cfg           config.StorageConfig
	publicBaseURL string
}

// NewGCSService создает клиента Google Cloud Storage. При заданном EmulatorHost
// подключается к fake-gcs-server без аутентификации.
func NewGCSService(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Service, error) {
	var opts []option.ClientOption
	emulator := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
	if emulator != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", emulator)
		opts = append(opts, option.WithoutAuthentication())
	} else {
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	publicBase := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBase == "" && emulator != "" {
		publicBase = emulator
	}

	svc := &gcsService{
		log:           log.With("component", "storage"),
		client:        client,
		cfg:           cfg,
		publicBaseURL: publicBase,
	}
	svc.log.Info("Object storage initialized", "emulator", emulator != "", "public_base_url", publicBase)
	return svc, nil
}

func (s *gcsService) bucket(category Category) string {
	return s.cfg.Bucket(string(category))
}

func (s *gcsService) Upload(ctx context.Context, category Category, key string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket(category)).Object(key).NewWriter(ctx)
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: failed to write object %q: %v", apperrors.ErrUpstream, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: failed to close writer for %q: %v", apperrors.ErrUpstream, key, err)
	}
	s.log.Debug("object uploaded", "bucket", s.bucket(category), "key", key)
	return nil
}

// Delete удаляет объект. Отсутствующий объект не считается ошибкой.
func (s *gcsService) Delete(ctx context.Context, category Category, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.client.Bucket(s.bucket(category)).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: failed to delete object %q in bucket %q: %v", apperrors.ErrUpstream, key, s.bucket(category), err)
	}
	return nil
}

func (s *gcsService) Download(ctx context.Context, category Category, key string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket(category)).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to open object %q: %v", apperrors.ErrUpstream, key, err)
	}
	return rc, nil
}

func (s *gcsService) PublicURL(category Category, key string) string {
	return publicURL(s.publicBaseURL, s.bucket(category), key)
}

func publicURL(base, bucket, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if base != "" {
		return fmt.Sprintf("%s/%s/%s", base, bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

// ContentTypeForKey определяет MIME-тип по расширению ключа
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".txt", ".md":
		return "text/plain; charset=utf-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

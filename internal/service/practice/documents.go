package practice

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/storage"
)

// StorageDocuments загружает файлы учебных материалов из объектного хранилища,
// а материалы с внешней ссылкой скачивает по HTTP
type StorageDocuments struct {
	store    storage.Service
	http     *resty.Client
	maxBytes int64
}

// NewStorageDocuments создает источник документов
func NewStorageDocuments(store storage.Service, maxBytes int64) *StorageDocuments {
	if maxBytes <= 0 {
		maxBytes = DefaultConfig().MaxDocumentBytes
	}
	return &StorageDocuments{
		store:    store,
		http:     resty.New().SetTimeout(60 * time.Second).SetDoNotParseResponse(true),
		maxBytes: maxBytes,
	}
}

// Load возвращает содержимое файла материала
func (d *StorageDocuments) Load(ctx context.Context, content *entity.Content) ([]byte, error) {
	if content.FilePath != "" && d.store != nil {
		rc, err := d.store.Download(ctx, storage.Category(content.FileBucket), content.FilePath)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return d.readLimited(rc)
	}

	if strings.HasPrefix(content.FileURL, "http://") || strings.HasPrefix(content.FileURL, "https://") {
		resp, err := d.http.R().SetContext(ctx).Get(content.FileURL)
		if err != nil {
			return nil, fmt.Errorf("%w: download %s: %v", apperrors.ErrUpstream, content.FileURL, err)
		}
		body := resp.RawBody()
		defer body.Close()
		if resp.IsError() {
			return nil, fmt.Errorf("%w: download %s returned %d", apperrors.ErrUpstream, content.FileURL, resp.StatusCode())
		}
		return d.readLimited(body)
	}

	return nil, fmt.Errorf("%w: study guide has no file", apperrors.ErrValidation)
}

func (d *StorageDocuments) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", apperrors.ErrValidation, d.maxBytes)
	}
	return data, nil
}

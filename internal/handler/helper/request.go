package helper

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/middleware"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/internal/service"
)

// Pagination читает page и page_size из query с ограничениями по умолчанию
func Pagination(c *gin.Context, defaultSize, maxSize int) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.Query("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize
}

// UserID возвращает пользователя из контекста; отсутствие - ошибка конфигурации маршрута
func UserID(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, apperrors.ErrUnauthorized
	}
	return id, nil
}

// ParamUUID возвращает uuid, сохраненный middleware.ExtractUUIDParam
func ParamUUID(c *gin.Context, key string) uuid.UUID {
	return c.MustGet(key).(uuid.UUID)
}

// FormFile открывает необязательный файл из multipart-формы.
// Возвращенная функция закрывает файл и безопасна при nil-загрузке.
func FormFile(c *gin.Context, field string) (*service.FileUpload, func(), error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: invalid %s: %v", apperrors.ErrValidation, field, err)
	}
	return open(header)
}

func open(header *multipart.FileHeader) (*service.FileUpload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	upload := &service.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      f,
	}
	return upload, func() { _ = f.Close() }, nil
}

// LimitBody ограничивает размер тела запроса maxMB мегабайтами
func LimitBody(maxMB int64) gin.HandlerFunc {
	if maxMB <= 0 {
		maxMB = 25
	}
	limit := maxMB << 20
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

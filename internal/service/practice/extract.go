package practice

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

var pdfMagic = []byte("%PDF-")

// ExtractText достает текст из загруженного документа: PDF или простого текста
func ExtractText(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: document is empty", apperrors.ErrValidation)
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == ".pdf" || bytes.HasPrefix(data, pdfMagic) {
		return extractPDF(data)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: unsupported document format %q", apperrors.ErrValidation, ext)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: document has no text", apperrors.ErrValidation)
	}
	return text, nil
}

func extractPDF(data []byte) (text string, err error) {
	// Библиотека паникует на поврежденных файлах
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", apperrors.ErrValidation, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open pdf: %v", apperrors.ErrValidation, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: failed to read pdf text: %v", apperrors.ErrValidation, err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	text = strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("%w: pdf has no extractable text", apperrors.ErrValidation)
	}
	return text, nil
}

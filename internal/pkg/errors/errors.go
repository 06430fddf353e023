package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок аутентификации (нет токена, неверный токен).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда access-токен провайдера истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния (например, повторная сдача уже завершенной сессии).
	ErrConflict = errors.New("resource state conflict")

	// ErrRateLimited используется, когда превышен лимит запросов.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstream используется для ошибок внешних сервисов (LLM, провайдер аватара, хранилище).
	ErrUpstream = errors.New("upstream service error")
)

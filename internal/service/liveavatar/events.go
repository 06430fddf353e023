package liveavatar

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

// EventType - тег события медиа-сессии
type EventType string

const (
	EventUserTranscription   EventType = "user.transcription"
	EventAvatarTranscription EventType = "avatar.transcription"
	EventSpeakStarted        EventType = "avatar.speak_started"
	EventSpeakEnded          EventType = "avatar.speak_ended"
	EventSessionConnected    EventType = "session.connected"
	EventSessionError        EventType = "session.error"
	EventSessionDisconnected EventType = "session.disconnected"

	// EventStateChanged рассылается подписчикам после смены состояния
	EventStateChanged EventType = "session.state_changed"
)

// maxTranscriptText ограничивает длину одной реплики
const maxTranscriptText = 4000

// Event - событие от браузера (пересылаемое из data-канала провайдера) или от сервера
type Event struct {
	Type      EventType `json:"type"`
	Text      string    `json:"text,omitempty"`
	Error     string    `json:"error,omitempty"`
	State     State     `json:"state,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
}

// Validate проверяет тег и полезную нагрузку входящего события
func (e Event) Validate() error {
	switch e.Type {
	case EventUserTranscription, EventAvatarTranscription:
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return fmt.Errorf("%w: transcription text is required", apperrors.ErrValidation)
		}
		if len([]rune(text)) > maxTranscriptText {
			return fmt.Errorf("%w: transcription text is too long", apperrors.ErrValidation)
		}
		return nil
	case EventSpeakStarted, EventSpeakEnded, EventSessionConnected, EventSessionError, EventSessionDisconnected:
		return nil
	default:
		return fmt.Errorf("%w: unknown event type %q", apperrors.ErrValidation, e.Type)
	}
}

// role возвращает роль автора реплики для событий транскрипции
func (e Event) role() (string, bool) {
	switch e.Type {
	case EventUserTranscription:
		return entity.AvatarRoleUser, true
	case EventAvatarTranscription:
		return entity.AvatarRoleAvatar, true
	}
	return "", false
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvatarSession - запись о сессии с живым аватаром
type AvatarSession struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ProviderSessionID string     `gorm:"size:255" json:"provider_session_id"`
	RoomName          string     `gorm:"size:64;not null" json:"room_name"`
	State             string     `gorm:"size:16;not null" json:"state"`
	Error             string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt         time.Time  `gorm:"not null" json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (AvatarSession) TableName() string {
	return "avatar_sessions"
}

// BeforeCreate проставляет UUID и время старта
func (s *AvatarSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	return nil
}

const (
	AvatarRoleUser   = "user"
	AvatarRoleAvatar = "avatar"
)

// AvatarMessage - реплика в транскрипте сессии с аватаром
type AvatarMessage struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AvatarSessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"avatar_session_id"`
	Role            string    `gorm:"size:16;not null" json:"role"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (AvatarMessage) TableName() string {
	return "avatar_messages"
}

// BeforeCreate проставляет UUID
func (m *AvatarMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

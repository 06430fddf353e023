package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Profile - профиль пользователя. ID совпадает с идентификатором у провайдера аутентификации.
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName    string    `gorm:"size:255" json:"full_name"`
	AvatarURL   string    `gorm:"type:text" json:"avatar_url"`
	Role        string    `gorm:"size:16;not null;default:'student'" json:"role"`
	CountryCode string    `gorm:"size:8" json:"country_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Profile) TableName() string {
	return "profiles"
}

// IsAdmin проверяет роль администратора
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContentType - вид учебного материала
type ContentType string

const (
	ContentTypeNote       ContentType = "note"
	ContentTypeVideo      ContentType = "video"
	ContentTypePodcast    ContentType = "podcast"
	ContentTypeExtra      ContentType = "extra"
	ContentTypeStudyGuide ContentType = "study_guide"
)

// Valid проверяет, что вид материала известен
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeNote, ContentTypeVideo, ContentTypePodcast, ContentTypeExtra, ContentTypeStudyGuide:
		return true
	}
	return false
}

// Content - учебный материал, загружаемый администратором в рамках страновой версии.
// Для практики выступает учебным пособием (study guide).
type Content struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	FileURL     string      `gorm:"type:text" json:"file_url"`
	FileName    string      `gorm:"size:255" json:"file_name"`
	FilePath    string      `gorm:"type:text" json:"-"` // ключ объекта в хранилище
	FileBucket  string      `gorm:"size:64" json:"-"`
	CountryCode string      `gorm:"size:8;not null;index:idx_content_country_type" json:"country_code"`
	ContentType ContentType `gorm:"size:32;not null;index:idx_content_country_type" json:"content_type"`
	CreatedBy   *uuid.UUID  `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Content) TableName() string {
	return "content"
}

// BeforeCreate проставляет UUID
func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Flashcard - карточка для запоминания
type Flashcard struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CountryCode string    `gorm:"size:8;not null;index" json:"country_code"`
	Front       string    `gorm:"type:text;not null" json:"front"`
	Back        string    `gorm:"type:text;not null" json:"back"`
	ImageURL    string    `gorm:"type:text" json:"image_url,omitempty"`
	ImagePath   string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Flashcard) TableName() string {
	return "flashcards"
}

// BeforeCreate проставляет UUID
func (f *Flashcard) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// CountryPack - страновая версия контента (тенант)
type CountryPack struct {
	Code     string `gorm:"size:8;primaryKey" json:"code"`
	Name     string `gorm:"size:100;not null" json:"name"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}

// TableName определяет имя таблицы для GORM
func (CountryPack) TableName() string {
	return "country_packs"
}

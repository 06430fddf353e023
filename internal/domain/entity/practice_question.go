package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionType - тип вопроса практики
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeFillBlank      QuestionType = "fill_blank"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
)

// Valid проверяет, что тип вопроса известен
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeTrueFalse, QuestionTypeFillBlank, QuestionTypeShortAnswer:
		return true
	}
	return false
}

// Difficulty - уровень сложности
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid проверяет, что уровень сложности известен
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ParseDifficulty нормализует строку. Пустая строка означает "любая сложность".
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if d == "" || d == "mixed" || d == "any" {
		return "", true
	}
	return d, d.Valid()
}

// PracticeQuestion - вопрос, привязанный к учебному материалу.
// После создания не изменяется, допускается только удаление.
type PracticeQuestion struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SourceContentID uuid.UUID    `gorm:"type:uuid;not null;index:idx_pq_source_difficulty" json:"source_content_id"`
	QuestionType    QuestionType `gorm:"size:32;not null" json:"question_type"`
	Difficulty      Difficulty   `gorm:"size:16;not null;index:idx_pq_source_difficulty" json:"difficulty"`
	Question        string       `gorm:"type:text;not null" json:"question"`
	Answer          string       `gorm:"type:text;not null" json:"answer"`
	Options         StringArray  `gorm:"type:jsonb" json:"options,omitempty"`
	CorrectOption   string       `gorm:"type:text" json:"correct_option,omitempty"`
	Explanation     string       `gorm:"type:text" json:"explanation,omitempty"`
	IsAIGenerated   bool         `gorm:"not null;default:false" json:"is_ai_generated"`
	IsAdminCreated  bool         `gorm:"not null;default:false" json:"is_admin_created"`
	CreatedAt       time.Time    `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (PracticeQuestion) TableName() string {
	return "practice_questions"
}

// BeforeCreate проставляет UUID, если он не задан
func (q *PracticeQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// ExpectedAnswer возвращает эталон, с которым сравнивается ответ пользователя.
// Для вопросов с вариантами это correct_option, если он задан.
func (q *PracticeQuestion) ExpectedAnswer() string {
	switch q.QuestionType {
	case QuestionTypeMultipleChoice, QuestionTypeTrueFalse:
		if strings.TrimSpace(q.CorrectOption) != "" {
			return q.CorrectOption
		}
	}
	return q.Answer
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PracticeSession - одна попытка пользователя пройти набор вопросов.
// Создается при старте и изменяется ровно один раз: при сдаче ответов.
type PracticeSession struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SourceContentID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"source_content_id"`
	Difficulty       Difficulty `gorm:"size:16" json:"difficulty,omitempty"`
	TotalQuestions   int        `gorm:"not null;default:0" json:"total_questions"`
	CorrectAnswers   int        `gorm:"not null;default:0" json:"correct_answers"`
	Score            int        `gorm:"not null;default:0" json:"score"`
	TimeSpentSeconds int        `gorm:"not null;default:0" json:"time_spent_seconds"`
	IsCompleted      bool       `gorm:"not null;default:false;index" json:"is_completed"`
	IsMockExam       bool       `gorm:"not null;default:false" json:"is_mock_exam"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (PracticeSession) TableName() string {
	return "practice_sessions"
}

// BeforeCreate проставляет UUID и время старта
func (s *PracticeSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	return nil
}

// PracticeSessionQuestion фиксирует упорядоченный набор вопросов, показанных в сессии
type PracticeSessionQuestion struct {
	SessionID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"session_id"`
	QuestionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"question_id"`
	Position   int       `gorm:"not null" json:"position"`
}

// TableName определяет имя таблицы для GORM
func (PracticeSessionQuestion) TableName() string {
	return "practice_session_questions"
}

// PracticeAnswer - ответ на вопрос в рамках сессии. Только добавление.
type PracticeAnswer struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_answer_session_question" json:"session_id"`
	QuestionID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_answer_session_question" json:"question_id"`
	UserAnswer       string    `gorm:"type:text;not null;default:''" json:"user_answer"`
	IsCorrect        bool      `gorm:"not null;default:false" json:"is_correct"`
	TimeSpentSeconds int       `gorm:"not null;default:0" json:"time_spent_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (PracticeAnswer) TableName() string {
	return "practice_answers"
}

// BeforeCreate проставляет UUID
func (a *PracticeAnswer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Mistake - неверный ответ вместе с вопросом, для экрана "работа над ошибками"
type Mistake struct {
	Answer   PracticeAnswer   `json:"answer"`
	Question PracticeQuestion `json:"question"`
}

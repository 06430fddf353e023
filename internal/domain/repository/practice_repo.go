package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
)

// PracticeQuestionRepository определяет методы для работы с пулом вопросов практики
type PracticeQuestionRepository interface {
	Create(ctx context.Context, question *entity.PracticeQuestion) error
	CreateBatch(ctx context.Context, questions []entity.PracticeQuestion) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeQuestion, error)
	// ListBySource возвращает вопросы учебного материала. Пустая difficulty - без фильтра.
	ListBySource(ctx context.Context, sourceContentID uuid.UUID, difficulty entity.Difficulty) ([]entity.PracticeQuestion, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionCompletion - итог сдачи сессии
type SessionCompletion struct {
	CorrectAnswers   int
	Score            int
	TimeSpentSeconds int
	CompletedAt      time.Time
	Answers          []entity.PracticeAnswer
}

// PracticeSessionRepository определяет методы для работы с сессиями практики
type PracticeSessionRepository interface {
	// Create сохраняет сессию вместе с упорядоченным списком показанных вопросов
	Create(ctx context.Context, session *entity.PracticeSession, questionIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeSession, error)
	// GetQuestions возвращает вопросы сессии в порядке показа
	GetQuestions(ctx context.Context, sessionID uuid.UUID) ([]entity.PracticeQuestion, error)
	// Complete атомарно переводит незавершенную сессию в завершенную и сохраняет ответы.
	// Если сессия уже завершена, возвращает apperrors.ErrConflict.
	Complete(ctx context.Context, sessionID uuid.UUID, result SessionCompletion) error
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.PracticeSession, int64, error)
	ListAllByUser(ctx context.Context, userID uuid.UUID) ([]entity.PracticeSession, error)
	ListCompletedBySource(ctx context.Context, sourceContentID uuid.UUID) ([]entity.PracticeSession, error)
	// DeleteAbandoned удаляет незавершенные сессии без ответов, начатые раньше before
	DeleteAbandoned(ctx context.Context, before time.Time) (int64, error)
}

// AnswerStats - агрегаты ответов пользователя
type AnswerStats struct {
	Answered int64
	Correct  int64
}

// PracticeAnswerRepository определяет методы для чтения ответов
type PracticeAnswerRepository interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.PracticeAnswer, error)
	ListMistakes(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Mistake, error)
	StatsByUser(ctx context.Context, userID uuid.UUID) (AnswerStats, error)
}

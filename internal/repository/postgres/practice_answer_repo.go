package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
)

// PracticeAnswerRepo реализует repository.PracticeAnswerRepository
type PracticeAnswerRepo struct {
	db *gorm.DB
}

// NewPracticeAnswerRepo создает новый репозиторий ответов
func NewPracticeAnswerRepo(db *gorm.DB) *PracticeAnswerRepo {
	return &PracticeAnswerRepo{db: db}
}

// ListBySession возвращает ответы сессии
func (r *PracticeAnswerRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.PracticeAnswer, error) {
	var answers []entity.PracticeAnswer
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at").Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

// ListMistakes возвращает последние неверные ответы пользователя вместе с вопросами
func (r *PracticeAnswerRepo) ListMistakes(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Mistake, error) {
	var answers []entity.PracticeAnswer
	err := r.db.WithContext(ctx).
		Model(&entity.PracticeAnswer{}).
		Select("practice_answers.*").
		Joins("JOIN practice_sessions ps ON ps.id = practice_answers.session_id").
		Where("ps.user_id = ? AND practice_answers.is_correct = ?", userID, false).
		Order("practice_answers.created_at DESC").
		Limit(limit).
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return []entity.Mistake{}, nil
	}

	ids := make([]uuid.UUID, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	var questions []entity.PracticeQuestion
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]entity.PracticeQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	mistakes := make([]entity.Mistake, 0, len(answers))
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue // вопрос удален администратором
		}
		mistakes = append(mistakes, entity.Mistake{Answer: a, Question: q})
	}
	return mistakes, nil
}

// StatsByUser считает ответы пользователя и число верных
func (r *PracticeAnswerRepo) StatsByUser(ctx context.Context, userID uuid.UUID) (repository.AnswerStats, error) {
	var stats repository.AnswerStats
	err := r.db.WithContext(ctx).
		Model(&entity.PracticeAnswer{}).
		Select("COUNT(*) AS answered, COALESCE(SUM(CASE WHEN practice_answers.is_correct THEN 1 ELSE 0 END), 0) AS correct").
		Joins("JOIN practice_sessions ps ON ps.id = practice_answers.session_id").
		Where("ps.user_id = ?", userID).
		Scan(&stats).Error
	return stats, err
}

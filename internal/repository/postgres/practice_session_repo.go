package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/database"
)

// PracticeSessionRepo реализует repository.PracticeSessionRepository
type PracticeSessionRepo struct {
	db *gorm.DB
}

// NewPracticeSessionRepo создает новый репозиторий сессий практики
func NewPracticeSessionRepo(db *gorm.DB) *PracticeSessionRepo {
	return &PracticeSessionRepo{db: db}
}

// Create сохраняет сессию и порядок её вопросов
func (r *PracticeSessionRepo) Create(ctx context.Context, session *entity.PracticeSession, questionIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return err
		}
		if len(questionIDs) == 0 {
			return nil
		}
		links := make([]entity.PracticeSessionQuestion, len(questionIDs))
		for i, qid := range questionIDs {
			links[i] = entity.PracticeSessionQuestion{SessionID: session.ID, QuestionID: qid, Position: i}
		}
		return tx.Create(&links).Error
	})
}

// GetByID возвращает сессию по ID
func (r *PracticeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeSession, error) {
	var session entity.PracticeSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetQuestions возвращает вопросы сессии в порядке показа
func (r *PracticeSessionRepo) GetQuestions(ctx context.Context, sessionID uuid.UUID) ([]entity.PracticeQuestion, error) {
	var questions []entity.PracticeQuestion
	err := r.db.WithContext(ctx).
		Model(&entity.PracticeQuestion{}).
		Select("practice_questions.*").
		Joins("JOIN practice_session_questions psq ON psq.question_id = practice_questions.id").
		Where("psq.session_id = ?", sessionID).
		Order("psq.position").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// Complete завершает сессию. Условие is_completed = false в UPDATE гарантирует,
// что из двух параллельных сдач пройдет только одна.
func (r *PracticeSessionRepo) Complete(ctx context.Context, sessionID uuid.UUID, result repository.SessionCompletion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.PracticeSession{}).
			Where("id = ? AND is_completed = ?", sessionID, false).
			Updates(map[string]interface{}{
				"is_completed":       true,
				"correct_answers":    result.CorrectAnswers,
				"score":              result.Score,
				"time_spent_seconds": result.TimeSpentSeconds,
				"completed_at":       result.CompletedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&entity.PracticeSession{}).Where("id = ?", sessionID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperrors.ErrNotFound
			}
			return apperrors.ErrConflict
		}

		if len(result.Answers) == 0 {
			return nil
		}
		if err := tx.Create(&result.Answers).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.ErrConflict
			}
			return err
		}
		return nil
	})
}

// ListByUser возвращает страницу сессий пользователя, новые первыми
func (r *PracticeSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.PracticeSession, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&entity.PracticeSession{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []entity.PracticeSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// ListAllByUser возвращает все сессии пользователя в хронологическом порядке
func (r *PracticeSessionRepo) ListAllByUser(ctx context.Context, userID uuid.UUID) ([]entity.PracticeSession, error) {
	var sessions []entity.PracticeSession
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("started_at").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListCompletedBySource возвращает завершенные сессии по учебному материалу
func (r *PracticeSessionRepo) ListCompletedBySource(ctx context.Context, sourceContentID uuid.UUID) ([]entity.PracticeSession, error) {
	var sessions []entity.PracticeSession
	err := r.db.WithContext(ctx).
		Where("source_content_id = ? AND is_completed = ?", sourceContentID, true).
		Order("completed_at").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteAbandoned удаляет брошенные сессии: не завершены, без ответов, начаты раньше before
func (r *PracticeSessionRepo) DeleteAbandoned(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		answered := tx.Model(&entity.PracticeAnswer{}).Select("session_id")
		err := tx.Model(&entity.PracticeSession{}).
			Where("is_completed = ? AND started_at < ?", false, before).
			Where("id NOT IN (?)", answered).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&entity.PracticeSessionQuestion{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&entity.PracticeSession{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

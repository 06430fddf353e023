package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/database"
)

// PracticeQuestionRepo реализует repository.PracticeQuestionRepository
type PracticeQuestionRepo struct {
	db *gorm.DB
}

// NewPracticeQuestionRepo создает новый репозиторий вопросов практики
func NewPracticeQuestionRepo(db *gorm.DB) *PracticeQuestionRepo {
	return &PracticeQuestionRepo{db: db}
}

// Create создает новый вопрос
func (r *PracticeQuestionRepo) Create(ctx context.Context, question *entity.PracticeQuestion) error {
	return r.db.WithContext(ctx).Create(question).Error
}

// CreateBatch создает пакет вопросов в одной транзакции
func (r *PracticeQuestionRepo) CreateBatch(ctx context.Context, questions []entity.PracticeQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&questions).Error
	})
}

// GetByID возвращает вопрос по ID
func (r *PracticeQuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeQuestion, error) {
	var question entity.PracticeQuestion
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// ListBySource возвращает вопросы учебного материала, опционально по сложности
func (r *PracticeQuestionRepo) ListBySource(ctx context.Context, sourceContentID uuid.UUID, difficulty entity.Difficulty) ([]entity.PracticeQuestion, error) {
	var questions []entity.PracticeQuestion
	q := r.db.WithContext(ctx).Where("source_content_id = ?", sourceContentID)
	if difficulty != "" {
		q = q.Where("difficulty = ?", difficulty)
	}
	if err := q.Order("created_at").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// Delete удаляет вопрос. Вопрос, который уже показан в какой-либо сессии,
// не удаляется (apperrors.ErrConflict): ответы и счет сессий остаются неизменными.
func (r *PracticeQuestionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&entity.PracticeSessionQuestion{}).Where("question_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: question is used in %d practice sessions", apperrors.ErrConflict, refs)
		}

		result := tx.Where("id = ?", id).Delete(&entity.PracticeQuestion{})
		if result.Error != nil {
			if database.IsForeignKeyViolation(result.Error) {
				return fmt.Errorf("%w: question is used in practice sessions", apperrors.ErrConflict)
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

// CreateQuestionInput - вопрос, написанный администратором
type CreateQuestionInput struct {
	StudyGuideID  uuid.UUID
	QuestionType  string
	Difficulty    string
	Question      string
	Answer        string
	Options       []string
	CorrectOption string
	Explanation   string
}

// QuestionAdminService - админские операции с пулом вопросов
type QuestionAdminService struct {
	questionRepo repository.PracticeQuestionRepository
	contentRepo  repository.ContentRepository
	sessionRepo  repository.PracticeSessionRepository
}

// NewQuestionAdminService создает сервис
func NewQuestionAdminService(
	questionRepo repository.PracticeQuestionRepository,
	contentRepo repository.ContentRepository,
	sessionRepo repository.PracticeSessionRepository,
) *QuestionAdminService {
	return &QuestionAdminService{questionRepo: questionRepo, contentRepo: contentRepo, sessionRepo: sessionRepo}
}

// List возвращает вопросы учебного материала
func (s *QuestionAdminService) List(ctx context.Context, studyGuideID uuid.UUID, difficulty string) ([]entity.PracticeQuestion, error) {
	d, ok := entity.ParseDifficulty(difficulty)
	if !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", apperrors.ErrValidation, difficulty)
	}
	return s.questionRepo.ListBySource(ctx, studyGuideID, d)
}

// Create проверяет и сохраняет вопрос администратора
func (s *QuestionAdminService) Create(ctx context.Context, in CreateQuestionInput) (*entity.PracticeQuestion, error) {
	if _, err := s.contentRepo.GetByID(ctx, in.StudyGuideID); err != nil {
		return nil, fmt.Errorf("study guide %s: %w", in.StudyGuideID, err)
	}
	q, err := buildAdminQuestion(in)
	if err != nil {
		return nil, err
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Delete удаляет вопрос из пула
func (s *QuestionAdminService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questionRepo.Delete(ctx, id)
}

// CompletedSessions возвращает завершенные сессии по материалу (для выгрузки)
func (s *QuestionAdminService) CompletedSessions(ctx context.Context, studyGuideID uuid.UUID) (*entity.Content, []entity.PracticeSession, error) {
	guide, err := s.contentRepo.GetByID(ctx, studyGuideID)
	if err != nil {
		return nil, nil, err
	}
	sessions, err := s.sessionRepo.ListCompletedBySource(ctx, studyGuideID)
	if err != nil {
		return nil, nil, err
	}
	return guide, sessions, nil
}

func buildAdminQuestion(in CreateQuestionInput) (*entity.PracticeQuestion, error) {
	q := &entity.PracticeQuestion{
		SourceContentID: in.StudyGuideID,
		QuestionType:    entity.QuestionType(strings.ToLower(strings.TrimSpace(in.QuestionType))),
		Question:        strings.TrimSpace(in.Question),
		Answer:          strings.TrimSpace(in.Answer),
		CorrectOption:   strings.TrimSpace(in.CorrectOption),
		Explanation:     strings.TrimSpace(in.Explanation),
		IsAdminCreated:  true,
	}
	if !q.QuestionType.Valid() {
		return nil, fmt.Errorf("%w: unknown question type %q", apperrors.ErrValidation, in.QuestionType)
	}
	d, ok := entity.ParseDifficulty(in.Difficulty)
	if !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", apperrors.ErrValidation, in.Difficulty)
	}
	if d == "" {
		d = entity.DifficultyMedium
	}
	q.Difficulty = d
	if q.Question == "" {
		return nil, fmt.Errorf("%w: question text is required", apperrors.ErrValidation)
	}

	switch q.QuestionType {
	case entity.QuestionTypeMultipleChoice:
		for _, o := range in.Options {
			if o = strings.TrimSpace(o); o != "" {
				q.Options = append(q.Options, o)
			}
		}
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: multiple choice needs at least two options", apperrors.ErrValidation)
		}
		if q.CorrectOption == "" {
			q.CorrectOption = q.Answer
		}
		found := false
		for _, o := range q.Options {
			if strings.EqualFold(o, q.CorrectOption) {
				q.CorrectOption = o
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: correct_option must be one of options", apperrors.ErrValidation)
		}
		if q.Answer == "" {
			q.Answer = q.CorrectOption
		}
	case entity.QuestionTypeTrueFalse:
		if q.CorrectOption == "" {
			q.CorrectOption = q.Answer
		}
		switch strings.ToLower(q.CorrectOption) {
		case "true":
			q.CorrectOption = "True"
		case "false":
			q.CorrectOption = "False"
		default:
			return nil, fmt.Errorf("%w: true_false answer must be True or False", apperrors.ErrValidation)
		}
		q.Options = entity.StringArray{"True", "False"}
		q.Answer = q.CorrectOption
	default:
		if q.Answer == "" {
			return nil, fmt.Errorf("%w: answer is required", apperrors.ErrValidation)
		}
		q.CorrectOption = ""
	}
	return q, nil
}

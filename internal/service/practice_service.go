package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/internal/service/practice"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

const (
	DefaultHistoryPageSize = 20
	MaxHistoryPageSize     = 100
	DefaultMistakesLimit   = 50
)

// QuestionAssembler собирает вопросы для новой сессии
type QuestionAssembler interface {
	Assemble(ctx context.Context, guide *entity.Content, difficulty entity.Difficulty, n int) (*practice.MixResult, error)
}

// StartInput - параметры старта сессии практики
type StartInput struct {
	StudyGuideID  uuid.UUID
	Difficulty    string
	QuestionCount int
}

// AnswerInput - ответ на один вопрос
type AnswerInput struct {
	QuestionID       uuid.UUID
	Answer           string
	TimeSpentSeconds int
}

// StartedSession - созданная сессия и показанные вопросы
type StartedSession struct {
	Session   *entity.PracticeSession
	Questions []entity.PracticeQuestion
	Generated int
}

// SessionDetails - сессия с вопросами и (для завершенной) ответами
type SessionDetails struct {
	Session   *entity.PracticeSession
	Questions []entity.PracticeQuestion
	Answers   []entity.PracticeAnswer
}

// SubmitResult - итог сдачи сессии
type SubmitResult struct {
	Session *entity.PracticeSession
	Grades  []practice.Grade
}

// PracticeService управляет жизненным циклом сессий практики
type PracticeService struct {
	sessionRepo       repository.PracticeSessionRepository
	answerRepo        repository.PracticeAnswerRepository
	contentRepo       repository.ContentRepository
	assembler         QuestionAssembler
	log               *logger.Logger
	mockExamQuestions int
	now               func() time.Time
}

// NewPracticeService создает сервис практики
func NewPracticeService(
	sessionRepo repository.PracticeSessionRepository,
	answerRepo repository.PracticeAnswerRepository,
	contentRepo repository.ContentRepository,
	assembler QuestionAssembler,
	log *logger.Logger,
	mockExamQuestions int,
) *PracticeService {
	if mockExamQuestions < practice.MinQuestionCount || mockExamQuestions > practice.MaxQuestionCount {
		mockExamQuestions = practice.MaxQuestionCount
	}
	return &PracticeService{
		sessionRepo:       sessionRepo,
		answerRepo:        answerRepo,
		contentRepo:       contentRepo,
		assembler:         assembler,
		log:               log.With("component", "practice"),
		mockExamQuestions: mockExamQuestions,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Start создает сессию практики по учебному материалу
func (s *PracticeService) Start(ctx context.Context, userID uuid.UUID, in StartInput) (*StartedSession, error) {
	difficulty, ok := entity.ParseDifficulty(in.Difficulty)
	if !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", apperrors.ErrValidation, in.Difficulty)
	}
	return s.start(ctx, userID, in.StudyGuideID, difficulty, in.QuestionCount, false)
}

// StartMockExam создает пробный экзамен: фиксированное число вопросов смешанной сложности
func (s *PracticeService) StartMockExam(ctx context.Context, userID, studyGuideID uuid.UUID) (*StartedSession, error) {
	return s.start(ctx, userID, studyGuideID, "", s.mockExamQuestions, true)
}

func (s *PracticeService) start(ctx context.Context, userID, guideID uuid.UUID, difficulty entity.Difficulty, n int, mock bool) (*StartedSession, error) {
	if n < practice.MinQuestionCount || n > practice.MaxQuestionCount {
		return nil, fmt.Errorf("%w: question count must be between %d and %d", apperrors.ErrValidation, practice.MinQuestionCount, practice.MaxQuestionCount)
	}

	guide, err := s.contentRepo.GetByID(ctx, guideID)
	if err != nil {
		return nil, fmt.Errorf("study guide %s: %w", guideID, err)
	}

	mix, err := s.assembler.Assemble(ctx, guide, difficulty, n)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(mix.Questions))
	for i, q := range mix.Questions {
		ids[i] = q.ID
	}
	session := &entity.PracticeSession{
		UserID:          userID,
		SourceContentID: guide.ID,
		Difficulty:      difficulty,
		TotalQuestions:  len(mix.Questions),
		IsMockExam:      mock,
		StartedAt:       s.now(),
	}
	if err := s.sessionRepo.Create(ctx, session, ids); err != nil {
		return nil, fmt.Errorf("create practice session: %w", err)
	}

	s.log.Info("practice session started",
		"session_id", session.ID, "user_id", userID, "study_guide_id", guide.ID,
		"questions", len(mix.Questions), "from_pool", mix.FromPool, "generated", mix.Generated, "mock_exam", mock)

	return &StartedSession{Session: session, Questions: mix.Questions, Generated: mix.Generated}, nil
}

// ownedSession загружает сессию и проверяет, что она принадлежит пользователю.
// Чужая сессия неотличима от отсутствующей.
func (s *PracticeService) ownedSession(ctx context.Context, userID, sessionID uuid.UUID) (*entity.PracticeSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return session, nil
}

// GetSession возвращает сессию с вопросами; ответы - только для завершенной
func (s *PracticeService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*SessionDetails, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	questions, err := s.sessionRepo.GetQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	details := &SessionDetails{Session: session, Questions: questions}
	if session.IsCompleted {
		if details.Answers, err = s.answerRepo.ListBySession(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	return details, nil
}

// CheckAnswer проверяет один ответ без сохранения
func (s *PracticeService) CheckAnswer(ctx context.Context, userID, sessionID, questionID uuid.UUID, answer string) (*practice.Grade, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted {
		return nil, fmt.Errorf("%w: session is already completed", apperrors.ErrConflict)
	}
	questions, err := s.sessionRepo.GetQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if questions[i].ID == questionID {
			g := practice.GradeAnswer(&questions[i], answer)
			return &g, nil
		}
	}
	return nil, fmt.Errorf("%w: question %s is not part of session", apperrors.ErrValidation, questionID)
}

// SubmitAnswers проверяет все ответы и завершает сессию. Вопросы без ответа считаются неверными.
func (s *PracticeService) SubmitAnswers(ctx context.Context, userID, sessionID uuid.UUID, answers []AnswerInput, timeSpentSeconds int) (*SubmitResult, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted {
		return nil, fmt.Errorf("%w: session is already completed", apperrors.ErrConflict)
	}

	questions, err := s.sessionRepo.GetQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	inSession := make(map[uuid.UUID]struct{}, len(questions))
	for _, q := range questions {
		inSession[q.ID] = struct{}{}
	}

	byQuestion := make(map[uuid.UUID]AnswerInput, len(answers))
	sumSeconds := 0
	for _, a := range answers {
		if _, ok := inSession[a.QuestionID]; !ok {
			return nil, fmt.Errorf("%w: question %s is not part of session", apperrors.ErrValidation, a.QuestionID)
		}
		if a.TimeSpentSeconds < 0 {
			a.TimeSpentSeconds = 0
		}
		byQuestion[a.QuestionID] = a
		sumSeconds += a.TimeSpentSeconds
	}
	if timeSpentSeconds <= 0 {
		timeSpentSeconds = sumSeconds
	}

	grades := make([]practice.Grade, 0, len(questions))
	rows := make([]entity.PracticeAnswer, 0, len(questions))
	correct := 0
	for i := range questions {
		in := byQuestion[questions[i].ID]
		g := practice.GradeAnswer(&questions[i], in.Answer)
		if g.IsCorrect {
			correct++
		}
		grades = append(grades, g)
		rows = append(rows, entity.PracticeAnswer{
			SessionID:        sessionID,
			QuestionID:       questions[i].ID,
			UserAnswer:       in.Answer,
			IsCorrect:        g.IsCorrect,
			TimeSpentSeconds: in.TimeSpentSeconds,
		})
	}

	// Счет считается от числа показанных вопросов, а не от того, что вернула база
	total := max(session.TotalQuestions, len(questions))
	if total != len(questions) {
		s.log.Warn("practice session lost questions",
			"session_id", sessionID, "total_questions", session.TotalQuestions, "found", len(questions))
	}

	completedAt := s.now()
	completion := repository.SessionCompletion{
		CorrectAnswers:   correct,
		Score:            practice.Score(correct, total),
		TimeSpentSeconds: timeSpentSeconds,
		CompletedAt:      completedAt,
		Answers:          rows,
	}
	if err := s.sessionRepo.Complete(ctx, sessionID, completion); err != nil {
		return nil, err
	}

	session.IsCompleted = true
	session.CorrectAnswers = completion.CorrectAnswers
	session.Score = completion.Score
	session.TimeSpentSeconds = completion.TimeSpentSeconds
	session.CompletedAt = &completedAt

	s.log.Info("practice session completed",
		"session_id", sessionID, "user_id", userID, "correct", correct, "total", total, "score", completion.Score)

	return &SubmitResult{Session: session, Grades: grades}, nil
}

// History возвращает страницу сессий пользователя, новые первыми
func (s *PracticeService) History(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]entity.PracticeSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}
	return s.sessionRepo.ListByUser(ctx, userID, (page-1)*pageSize, pageSize)
}

// Mistakes возвращает последние неверные ответы пользователя вместе с вопросами
func (s *PracticeService) Mistakes(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Mistake, error) {
	if limit < 1 || limit > MaxHistoryPageSize {
		limit = DefaultMistakesLimit
	}
	return s.answerRepo.ListMistakes(ctx, userID, limit)
}

// SweepAbandoned удаляет незавершенные сессии без ответов старше olderThan
func (s *PracticeService) SweepAbandoned(ctx context.Context, olderThan time.Duration) (int64, error) {
	deleted, err := s.sessionRepo.DeleteAbandoned(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("sweep abandoned sessions: %w", err)
	}
	if deleted > 0 {
		s.log.Info("abandoned practice sessions removed", "count", deleted)
	}
	return deleted, nil
}

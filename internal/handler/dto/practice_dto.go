package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/service"
	"github.com/yourusername/studyhub-api/internal/service/practice"
)

// QuestionResponse представляет вопрос в формате для ответа клиенту.
// Ответ и объяснение заполняются только для завершенной сессии.
type QuestionResponse struct {
	ID            uuid.UUID `json:"id"`
	QuestionType  string    `json:"question_type"`
	Difficulty    string    `json:"difficulty"`
	Question      string    `json:"question"`
	Options       []string  `json:"options,omitempty"`
	IsAIGenerated bool      `json:"is_ai_generated"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
}

// SessionResponse представляет сессию практики
type SessionResponse struct {
	ID               uuid.UUID  `json:"id"`
	StudyGuideID     uuid.UUID  `json:"study_guide_id"`
	Difficulty       string     `json:"difficulty,omitempty"`
	TotalQuestions   int        `json:"total_questions"`
	CorrectAnswers   int        `json:"correct_answers"`
	Score            int        `json:"score"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	IsCompleted      bool       `json:"is_completed"`
	IsMockExam       bool       `json:"is_mock_exam"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// StartResponse - ответ на запуск сессии
type StartResponse struct {
	Session   SessionResponse    `json:"session"`
	Questions []QuestionResponse `json:"questions"`
	Generated int                `json:"generated"`
}

// SessionDetailsResponse - сессия с вопросами и ответами
type SessionDetailsResponse struct {
	Session   SessionResponse         `json:"session"`
	Questions []QuestionResponse      `json:"questions"`
	Answers   []entity.PracticeAnswer `json:"answers,omitempty"`
}

// SubmitResponse - итог сдачи
type SubmitResponse struct {
	Session SessionResponse  `json:"session"`
	Results []practice.Grade `json:"results"`
}

// PaginatedSessionsResponse представляет пагинированную историю сессий
type PaginatedSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// NewQuestionResponse создает DTO вопроса; reveal раскрывает правильный ответ
func NewQuestionResponse(q *entity.PracticeQuestion, reveal bool) QuestionResponse {
	resp := QuestionResponse{
		ID:            q.ID,
		QuestionType:  string(q.QuestionType),
		Difficulty:    string(q.Difficulty),
		Question:      q.Question,
		Options:       append([]string(nil), q.Options...),
		IsAIGenerated: q.IsAIGenerated,
	}
	if reveal {
		resp.CorrectAnswer = q.ExpectedAnswer()
		resp.Explanation = q.Explanation
	}
	return resp
}

// NewQuestionListResponse создает DTO для списка вопросов
func NewQuestionListResponse(questions []entity.PracticeQuestion, reveal bool) []QuestionResponse {
	list := make([]QuestionResponse, len(questions))
	for i := range questions {
		list[i] = NewQuestionResponse(&questions[i], reveal)
	}
	return list
}

// NewSessionResponse создает DTO сессии
func NewSessionResponse(s *entity.PracticeSession) SessionResponse {
	return SessionResponse{
		ID:               s.ID,
		StudyGuideID:     s.SourceContentID,
		Difficulty:       string(s.Difficulty),
		TotalQuestions:   s.TotalQuestions,
		CorrectAnswers:   s.CorrectAnswers,
		Score:            s.Score,
		TimeSpentSeconds: s.TimeSpentSeconds,
		IsCompleted:      s.IsCompleted,
		IsMockExam:       s.IsMockExam,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
	}
}

// NewStartResponse создает DTO только что запущенной сессии
func NewStartResponse(started *service.StartedSession) *StartResponse {
	return &StartResponse{
		Session:   NewSessionResponse(started.Session),
		Questions: NewQuestionListResponse(started.Questions, false),
		Generated: started.Generated,
	}
}

// NewSessionDetailsResponse создает DTO сессии; ответы раскрываются после завершения
func NewSessionDetailsResponse(d *service.SessionDetails) *SessionDetailsResponse {
	return &SessionDetailsResponse{
		Session:   NewSessionResponse(d.Session),
		Questions: NewQuestionListResponse(d.Questions, d.Session.IsCompleted),
		Answers:   d.Answers,
	}
}

// NewSubmitResponse создает DTO результата сдачи
func NewSubmitResponse(r *service.SubmitResult) *SubmitResponse {
	return &SubmitResponse{
		Session: NewSessionResponse(r.Session),
		Results: r.Grades,
	}
}

// NewPaginatedSessionsResponse создает DTO страницы истории
func NewPaginatedSessionsResponse(sessions []entity.PracticeSession, total int64, page, pageSize int) *PaginatedSessionsResponse {
	list := make([]SessionResponse, len(sessions))
	for i := range sessions {
		list[i] = NewSessionResponse(&sessions[i])
	}
	return &PaginatedSessionsResponse{Sessions: list, Total: total, Page: page, PageSize: pageSize}
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/handler/dto"
	"github.com/yourusername/studyhub-api/internal/handler/helper"
	"github.com/yourusername/studyhub-api/internal/service"
	"github.com/yourusername/studyhub-api/internal/service/practice"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// PracticeUseCase - операции сессий практики, нужные обработчику
type PracticeUseCase interface {
	Start(ctx context.Context, userID uuid.UUID, in service.StartInput) (*service.StartedSession, error)
	StartMockExam(ctx context.Context, userID, studyGuideID uuid.UUID) (*service.StartedSession, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*service.SessionDetails, error)
	CheckAnswer(ctx context.Context, userID, sessionID, questionID uuid.UUID, answer string) (*practice.Grade, error)
	SubmitAnswers(ctx context.Context, userID, sessionID uuid.UUID, answers []service.AnswerInput, timeSpentSeconds int) (*service.SubmitResult, error)
	History(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]entity.PracticeSession, int64, error)
	Mistakes(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Mistake, error)
}

// PracticeHandler обрабатывает запросы сессий практики и пробных экзаменов
type PracticeHandler struct {
	practice PracticeUseCase
	log      *logger.Logger
}

// NewPracticeHandler создает обработчик практики
func NewPracticeHandler(practice PracticeUseCase, log *logger.Logger) *PracticeHandler {
	return &PracticeHandler{practice: practice, log: log}
}

const (
	actionStart    = "start"
	actionMockExam = "mock_exam"
	actionAnswer   = "answer"
	actionCheck    = "check"

	// defaultQuestionCount используется, если клиент не передал questionCount
	defaultQuestionCount = 10
)

// StartRequest представляет запрос POST /api/practice
type StartRequest struct {
	Action        string    `json:"action" binding:"required,oneof=start mock_exam"`
	StudyGuideID  uuid.UUID `json:"studyGuideId" binding:"required"`
	Difficulty    string    `json:"difficulty"`
	QuestionCount int       `json:"questionCount"`
}

// AnswerRequest - один ответ в запросе сдачи
type AnswerRequest struct {
	QuestionID       uuid.UUID `json:"questionId" binding:"required"`
	Answer           string    `json:"answer"`
	TimeSpentSeconds int       `json:"timeSpentSeconds" binding:"min=0"`
}

// UpdateRequest представляет запрос PUT /api/practice
type UpdateRequest struct {
	Action           string          `json:"action" binding:"required,oneof=answer check"`
	SessionID        uuid.UUID       `json:"sessionId" binding:"required"`
	QuestionID       uuid.UUID       `json:"questionId"`
	Answer           string          `json:"answer"`
	Answers          []AnswerRequest `json:"answers" binding:"dive"`
	TimeSpentSeconds int             `json:"timeSpentSeconds" binding:"min=0"`
}

// MockExamRequest представляет запрос POST /api/mock-exam
type MockExamRequest struct {
	StudyGuideID uuid.UUID `json:"studyGuideId" binding:"required"`
}

// Start запускает сессию практики или пробный экзамен
// POST /api/practice
func (h *PracticeHandler) Start(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var started *service.StartedSession
	switch req.Action {
	case actionMockExam:
		started, err = h.practice.StartMockExam(c.Request.Context(), userID, req.StudyGuideID)
	default:
		count := req.QuestionCount
		if count == 0 {
			count = defaultQuestionCount
		}
		started, err = h.practice.Start(c.Request.Context(), userID, service.StartInput{
			StudyGuideID:  req.StudyGuideID,
			Difficulty:    req.Difficulty,
			QuestionCount: count,
		})
	}
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewStartResponse(started))
}

// StartMockExam запускает пробный экзамен
// POST /api/mock-exam
func (h *PracticeHandler) StartMockExam(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	var req MockExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	started, err := h.practice.StartMockExam(c.Request.Context(), userID, req.StudyGuideID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewStartResponse(started))
}

// Update сдает ответы сессии (answer) или проверяет один ответ без сохранения (check)
// PUT /api/practice
func (h *PracticeHandler) Update(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	switch req.Action {
	case actionCheck:
		if req.QuestionID == uuid.Nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "questionId is required for check"})
			return
		}
		grade, err := h.practice.CheckAnswer(c.Request.Context(), userID, req.SessionID, req.QuestionID, req.Answer)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, grade)

	default:
		answers := make([]service.AnswerInput, len(req.Answers))
		for i, a := range req.Answers {
			answers[i] = service.AnswerInput{QuestionID: a.QuestionID, Answer: a.Answer, TimeSpentSeconds: a.TimeSpentSeconds}
		}
		result, err := h.practice.SubmitAnswers(c.Request.Context(), userID, req.SessionID, answers, req.TimeSpentSeconds)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSubmitResponse(result))
	}
}

// GetSession возвращает сессию с вопросами
// GET /api/practice/:id
func (h *PracticeHandler) GetSession(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	details, err := h.practice.GetSession(c.Request.Context(), userID, helper.ParamUUID(c, "sessionID"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionDetailsResponse(details))
}

// History возвращает историю сессий пользователя
// GET /api/practice/history
func (h *PracticeHandler) History(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	page, pageSize := helper.Pagination(c, service.DefaultHistoryPageSize, service.MaxHistoryPageSize)

	sessions, total, err := h.practice.History(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedSessionsResponse(sessions, total, page, pageSize))
}

// Mistakes возвращает последние ошибки пользователя
// GET /api/practice/mistakes
func (h *PracticeHandler) Mistakes(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	mistakes, err := h.practice.Mistakes(c.Request.Context(), userID, limit)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mistakes": mistakes})
}

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/middleware"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/internal/service"
	"github.com/yourusername/studyhub-api/internal/service/practice"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

func practiceRouter(uc PracticeUseCase, userID uuid.UUID) *gin.Engine {
	h := NewPracticeHandler(uc, logger.NewNop())
	r := gin.New()
	api := r.Group("/api", withUser(userID))
	api.POST("/practice", h.Start)
	api.PUT("/practice", h.Update)
	api.GET("/practice/history", h.History)
	api.GET("/practice/mistakes", h.Mistakes)
	api.GET("/practice/:id", middleware.ExtractUUIDParam("id", "sessionID"), h.GetSession)
	api.POST("/mock-exam", h.StartMockExam)
	return r
}

func sampleQuestion() entity.PracticeQuestion {
	return entity.PracticeQuestion{
		ID:            uuid.New(),
		QuestionType:  entity.QuestionTypeMultipleChoice,
		Difficulty:    entity.DifficultyMedium,
		Question:      "Which organelle produces ATP?",
		Answer:        "Mitochondria",
		Options:       entity.StringArray{"Nucleus", "Mitochondria"},
		CorrectOption: "Mitochondria",
		Explanation:   "Cellular respiration happens there.",
	}
}

func TestPracticeHandler_Start_DefaultsQuestionCount(t *testing.T) {
	// Arrange
	uc := new(MockPracticeUseCase)
	userID, guideID := uuid.New(), uuid.New()
	session := &entity.PracticeSession{ID: uuid.New(), UserID: userID, SourceContentID: guideID, TotalQuestions: 1, StartedAt: time.Now()}
	uc.On("Start", mock.Anything, userID, service.StartInput{StudyGuideID: guideID, Difficulty: "medium", QuestionCount: 10}).
		Return(&service.StartedSession{Session: session, Questions: []entity.PracticeQuestion{sampleQuestion()}, Generated: 1}, nil)

	// Act
	w := doJSON(t, practiceRouter(uc, userID), http.MethodPost, "/api/practice", map[string]interface{}{
		"action": "start", "studyGuideId": guideID, "difficulty": "medium",
	})

	// Assert
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	questions := body["questions"].([]interface{})
	require.Len(t, questions, 1)
	q := questions[0].(map[string]interface{})
	assert.NotContains(t, q, "correct_answer", "ответ не раскрывается до сдачи")
	assert.NotContains(t, q, "explanation")
	assert.Equal(t, guideID.String(), body["session"].(map[string]interface{})["study_guide_id"])
	uc.AssertExpectations(t)
}

func TestPracticeHandler_Start_CamelCaseBody(t *testing.T) {
	uc := new(MockPracticeUseCase)
	userID, guideID := uuid.New(), uuid.New()
	uc.On("Start", mock.Anything, userID, service.StartInput{StudyGuideID: guideID, QuestionCount: 10}).
		Return(&service.StartedSession{Session: &entity.PracticeSession{ID: uuid.New(), SourceContentID: guideID, TotalQuestions: 10}}, nil)

	body := json.RawMessage(`{"action":"start","studyGuideId":"` + guideID.String() + `","questionCount":10}`)
	w := doJSON(t, practiceRouter(uc, userID), http.MethodPost, "/api/practice", body)

	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uc.AssertExpectations(t)
}

func TestPracticeHandler_Start_MockExamAction(t *testing.T) {
	uc := new(MockPracticeUseCase)
	userID, guideID := uuid.New(), uuid.New()
	uc.On("StartMockExam", mock.Anything, userID, guideID).
		Return(&service.StartedSession{Session: &entity.PracticeSession{ID: uuid.New(), IsMockExam: true}}, nil)

	w := doJSON(t, practiceRouter(uc, userID), http.MethodPost, "/api/practice", map[string]interface{}{
		"action": "mock_exam", "studyGuideId": guideID,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decode(t, w)["session"].(map[string]interface{})["is_mock_exam"])
	uc.AssertNotCalled(t, "Start", mock.Anything, mock.Anything, mock.Anything)
}

func TestPracticeHandler_Start_Errors(t *testing.T) {
	userID, guideID := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		body       map[string]interface{}
		serviceErr error
		wantStatus int
	}{
		{"неизвестное действие", map[string]interface{}{"action": "restart", "studyGuideId": guideID}, nil, http.StatusBadRequest},
		{"нет материала", map[string]interface{}{"action": "start"}, nil, http.StatusBadRequest},
		{"ошибка валидации", map[string]interface{}{"action": "start", "studyGuideId": guideID, "questionCount": 50}, fmt.Errorf("%w: too many", apperrors.ErrValidation), http.StatusUnprocessableEntity},
		{"материал не найден", map[string]interface{}{"action": "start", "studyGuideId": guideID}, apperrors.ErrNotFound, http.StatusNotFound},
		{"сбой LLM", map[string]interface{}{"action": "start", "studyGuideId": guideID}, fmt.Errorf("%w: timeout", apperrors.ErrUpstream), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockPracticeUseCase)
			if tt.serviceErr != nil {
				uc.On("Start", mock.Anything, userID, mock.Anything).Return(nil, tt.serviceErr)
			}

			w := doJSON(t, practiceRouter(uc, userID), http.MethodPost, "/api/practice", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestPracticeHandler_Update(t *testing.T) {
	userID, sessionID, questionID := uuid.New(), uuid.New(), uuid.New()

	t.Run("check без вопроса", func(t *testing.T) {
		uc := new(MockPracticeUseCase)
		w := doJSON(t, practiceRouter(uc, userID), http.MethodPut, "/api/practice", map[string]interface{}{
			"action": "check", "sessionId": sessionID, "answer": "x",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("check", func(t *testing.T) {
		uc := new(MockPracticeUseCase)
		uc.On("CheckAnswer", mock.Anything, userID, sessionID, questionID, "mitochondria").
			Return(&practice.Grade{QuestionID: questionID.String(), IsCorrect: true, UserAnswer: "mitochondria", CorrectAnswer: "Mitochondria"}, nil)

		w := doJSON(t, practiceRouter(uc, userID), http.MethodPut, "/api/practice", map[string]interface{}{
			"action": "check", "sessionId": sessionID, "questionId": questionID, "answer": "mitochondria",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["is_correct"])
	})

	t.Run("answer", func(t *testing.T) {
		uc := new(MockPracticeUseCase)
		answers := []service.AnswerInput{{QuestionID: questionID, Answer: "Mitochondria", TimeSpentSeconds: 12}}
		completed := time.Now()
		uc.On("SubmitAnswers", mock.Anything, userID, sessionID, answers, 40).Return(&service.SubmitResult{
			Session: &entity.PracticeSession{ID: sessionID, TotalQuestions: 1, CorrectAnswers: 1, Score: 100, IsCompleted: true, CompletedAt: &completed},
			Grades:  []practice.Grade{{QuestionID: questionID.String(), IsCorrect: true}},
		}, nil)

		w := doJSON(t, practiceRouter(uc, userID), http.MethodPut, "/api/practice", map[string]interface{}{
			"action": "answer", "sessionId": sessionID, "timeSpentSeconds": 40,
			"answers": []map[string]interface{}{{"questionId": questionID, "answer": "Mitochondria", "timeSpentSeconds": 12}},
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, float64(100), body["session"].(map[string]interface{})["score"])
		assert.Len(t, body["results"], 1)
	})

	t.Run("повторная сдача", func(t *testing.T) {
		uc := new(MockPracticeUseCase)
		uc.On("SubmitAnswers", mock.Anything, userID, sessionID, mock.Anything, 0).
			Return(nil, fmt.Errorf("%w: session already completed", apperrors.ErrConflict))

		w := doJSON(t, practiceRouter(uc, userID), http.MethodPut, "/api/practice", map[string]interface{}{
			"action": "answer", "sessionId": sessionID,
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestPracticeHandler_GetSession_RevealsAnswersAfterCompletion(t *testing.T) {
	uc := new(MockPracticeUseCase)
	userID, sessionID := uuid.New(), uuid.New()
	uc.On("GetSession", mock.Anything, userID, sessionID).Return(&service.SessionDetails{
		Session:   &entity.PracticeSession{ID: sessionID, IsCompleted: true},
		Questions: []entity.PracticeQuestion{sampleQuestion()},
	}, nil)

	w := doJSON(t, practiceRouter(uc, userID), http.MethodGet, "/api/practice/"+sessionID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	q := decode(t, w)["questions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Mitochondria", q["correct_answer"])
	assert.Equal(t, "Cellular respiration happens there.", q["explanation"])
}

func TestPracticeHandler_GetSession_NotFound(t *testing.T) {
	uc := new(MockPracticeUseCase)
	userID, sessionID := uuid.New(), uuid.New()
	uc.On("GetSession", mock.Anything, userID, sessionID).Return(nil, apperrors.ErrNotFound)

	w := doJSON(t, practiceRouter(uc, userID), http.MethodGet, "/api/practice/"+sessionID.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPracticeHandler_History_ClampsPageSize(t *testing.T) {
	uc := new(MockPracticeUseCase)
	userID := uuid.New()
	uc.On("History", mock.Anything, userID, 2, service.MaxHistoryPageSize).
		Return([]entity.PracticeSession{{ID: uuid.New()}}, int64(101), nil)

	w := doJSON(t, practiceRouter(uc, userID), http.MethodGet, "/api/practice/history?page=2&page_size=500", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(101), body["total"])
	assert.Equal(t, float64(service.MaxHistoryPageSize), body["page_size"])
	uc.AssertExpectations(t)
}

func TestPracticeHandler_Mistakes(t *testing.T) {
	uc := new(MockPracticeUseCase)
	userID := uuid.New()
	uc.On("Mistakes", mock.Anything, userID, 5).Return([]entity.Mistake{{Question: sampleQuestion()}}, nil)

	w := doJSON(t, practiceRouter(uc, userID), http.MethodGet, "/api/practice/mistakes?limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["mistakes"], 1)
}

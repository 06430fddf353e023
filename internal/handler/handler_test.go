package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/middleware"
	"github.com/yourusername/studyhub-api/internal/service"
	"github.com/yourusername/studyhub-api/internal/service/practice"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withUser имитирует RequireAuth
func withUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, id)
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// MockPracticeUseCase - мок PracticeUseCase
type MockPracticeUseCase struct {
	mock.Mock
}

func (m *MockPracticeUseCase) Start(ctx context.Context, userID uuid.UUID, in service.StartInput) (*service.StartedSession, error) {
	args := m.Called(ctx, userID, in)
	if v := args.Get(0); v != nil {
		return v.(*service.StartedSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPracticeUseCase) StartMockExam(ctx context.Context, userID, studyGuideID uuid.UUID) (*service.StartedSession, error) {
	args := m.Called(ctx, userID, studyGuideID)
	if v := args.Get(0); v != nil {
		return v.(*service.StartedSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPracticeUseCase) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*service.SessionDetails, error) {
	args := m.Called(ctx, userID, sessionID)
	if v := args.Get(0); v != nil {
		return v.(*service.SessionDetails), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPracticeUseCase) CheckAnswer(ctx context.Context, userID, sessionID, questionID uuid.UUID, answer string) (*practice.Grade, error) {
	args := m.Called(ctx, userID, sessionID, questionID, answer)
	if v := args.Get(0); v != nil {
		return v.(*practice.Grade), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPracticeUseCase) SubmitAnswers(ctx context.Context, userID, sessionID uuid.UUID, answers []service.AnswerInput, timeSpentSeconds int) (*service.SubmitResult, error) {
	args := m.Called(ctx, userID, sessionID, answers, timeSpentSeconds)
	if v := args.Get(0); v != nil {
		return v.(*service.SubmitResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPracticeUseCase) History(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]entity.PracticeSession, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]entity.PracticeSession), args.Get(1).(int64), args.Error(2)
}

func (m *MockPracticeUseCase) Mistakes(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Mistake, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]entity.Mistake), args.Error(1)
}

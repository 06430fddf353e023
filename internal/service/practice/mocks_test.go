package practice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/llm"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// MockQuestionRepo - мок для PracticeQuestionRepository
type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) Create(ctx context.Context, q *entity.PracticeQuestion) error {
	return m.Called(ctx, q).Error(0)
}

func (m *MockQuestionRepo) CreateBatch(ctx context.Context, qs []entity.PracticeQuestion) error {
	args := m.Called(ctx, qs)
	for i := range qs {
		if qs[i].ID == uuid.Nil {
			qs[i].ID = uuid.New()
		}
	}
	return args.Error(0)
}

func (m *MockQuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeQuestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PracticeQuestion), args.Error(1)
}

func (m *MockQuestionRepo) ListBySource(ctx context.Context, src uuid.UUID, d entity.Difficulty) ([]entity.PracticeQuestion, error) {
	args := m.Called(ctx, src, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Копия, чтобы перемешивание не портило данные теста
	pool := args.Get(0).([]entity.PracticeQuestion)
	out := make([]entity.PracticeQuestion, len(pool))
	copy(out, pool)
	return out, args.Error(1)
}

func (m *MockQuestionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockChatCompleter - мок LLM
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// MockDocuments - мок источника документов
type MockDocuments struct {
	mock.Mock
}

func (m *MockDocuments) Load(ctx context.Context, c *entity.Content) ([]byte, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// memoryCache - простая реализация CacheRepository в памяти
type memoryCache struct {
	json map[string]interface{}
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{json: make(map[string]interface{})}
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.json, key)
	return nil
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	c.sets++
	c.json[key] = value
	return nil
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	v, ok := c.json[key]
	if !ok {
		return apperrors.ErrNotFound
	}
	dc, ok := v.(*DocumentContext)
	if !ok {
		return apperrors.ErrNotFound
	}
	*(dest.(*DocumentContext)) = *dc
	return nil
}

// noShuffle оставляет порядок без изменений
func noShuffle(n int, swap func(i, j int)) {}

func newTestDeps() (*Dependencies, *MockQuestionRepo, *MockChatCompleter, *MockDocuments) {
	repo := new(MockQuestionRepo)
	chat := new(MockChatCompleter)
	docs := new(MockDocuments)
	deps := &Dependencies{
		QuestionRepo: repo,
		LLM:          chat,
		Documents:    docs,
		Logger:       logger.NewNop(),
		Config:       DefaultConfig(),
		Shuffle:      noShuffle,
	}
	return deps, repo, chat, docs
}

func poolQuestions(src uuid.UUID, n int) []entity.PracticeQuestion {
	out := make([]entity.PracticeQuestion, n)
	for i := range out {
		out[i] = entity.PracticeQuestion{
			ID:              uuid.New(),
			SourceContentID: src,
			QuestionType:    entity.QuestionTypeFillBlank,
			Difficulty:      entity.DifficultyMedium,
			Question:        "Pool question",
			Answer:          "answer",
		}
	}
	return out
}

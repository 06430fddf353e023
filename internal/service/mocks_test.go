package service

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/internal/service/practice"
	"github.com/yourusername/studyhub-api/pkg/storage"
)

// ============================================================================
// Моки репозиториев и внешних сервисов для тестов пакета service
// ============================================================================

// MockSessionRepo реализует repository.PracticeSessionRepository
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(ctx context.Context, s *entity.PracticeSession, ids []uuid.UUID) error {
	args := m.Called(ctx, s, ids)
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PracticeSession), args.Error(1)
}

func (m *MockSessionRepo) GetQuestions(ctx context.Context, id uuid.UUID) ([]entity.PracticeQuestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.PracticeQuestion), args.Error(1)
}

func (m *MockSessionRepo) Complete(ctx context.Context, id uuid.UUID, result repository.SessionCompletion) error {
	return m.Called(ctx, id, result).Error(0)
}

func (m *MockSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]entity.PracticeSession, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	return args.Get(0).([]entity.PracticeSession), args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepo) ListAllByUser(ctx context.Context, userID uuid.UUID) ([]entity.PracticeSession, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]entity.PracticeSession), args.Error(1)
}

func (m *MockSessionRepo) ListCompletedBySource(ctx context.Context, src uuid.UUID) ([]entity.PracticeSession, error) {
	args := m.Called(ctx, src)
	return args.Get(0).([]entity.PracticeSession), args.Error(1)
}

func (m *MockSessionRepo) DeleteAbandoned(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockAnswerRepo реализует repository.PracticeAnswerRepository
type MockAnswerRepo struct {
	mock.Mock
}

func (m *MockAnswerRepo) ListBySession(ctx context.Context, id uuid.UUID) ([]entity.PracticeAnswer, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]entity.PracticeAnswer), args.Error(1)
}

func (m *MockAnswerRepo) ListMistakes(ctx context.Context, userID uuid.UUID, limit int) ([]entity.Mistake, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]entity.Mistake), args.Error(1)
}

func (m *MockAnswerRepo) StatsByUser(ctx context.Context, userID uuid.UUID) (repository.AnswerStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(repository.AnswerStats), args.Error(1)
}

// MockContentRepo реализует repository.ContentRepository
type MockContentRepo struct {
	mock.Mock
}

func (m *MockContentRepo) Create(ctx context.Context, c *entity.Content) error {
	args := m.Called(ctx, c)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockContentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Content, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Content), args.Error(1)
}

func (m *MockContentRepo) List(ctx context.Context, country string, ct entity.ContentType) ([]entity.Content, error) {
	args := m.Called(ctx, country, ct)
	return args.Get(0).([]entity.Content), args.Error(1)
}

func (m *MockContentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockCountryPackRepo реализует repository.CountryPackRepository
type MockCountryPackRepo struct {
	mock.Mock
}

func (m *MockCountryPackRepo) ListActive(ctx context.Context) ([]entity.CountryPack, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.CountryPack), args.Error(1)
}

func (m *MockCountryPackRepo) Exists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

// MockProfileRepo реализует repository.ProfileRepository
type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockProfileRepo) Create(ctx context.Context, p *entity.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProfileRepo) Update(ctx context.Context, p *entity.Profile) error {
	return m.Called(ctx, p).Error(0)
}

// MockPoolRepo реализует repository.PracticeQuestionRepository
type MockPoolRepo struct {
	mock.Mock
}

func (m *MockPoolRepo) Create(ctx context.Context, q *entity.PracticeQuestion) error {
	return m.Called(ctx, q).Error(0)
}

func (m *MockPoolRepo) CreateBatch(ctx context.Context, qs []entity.PracticeQuestion) error {
	return m.Called(ctx, qs).Error(0)
}

func (m *MockPoolRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeQuestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PracticeQuestion), args.Error(1)
}

func (m *MockPoolRepo) ListBySource(ctx context.Context, src uuid.UUID, d entity.Difficulty) ([]entity.PracticeQuestion, error) {
	args := m.Called(ctx, src, d)
	return args.Get(0).([]entity.PracticeQuestion), args.Error(1)
}

func (m *MockPoolRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockAssembler реализует QuestionAssembler
type MockAssembler struct {
	mock.Mock
}

func (m *MockAssembler) Assemble(ctx context.Context, guide *entity.Content, d entity.Difficulty, n int) (*practice.MixResult, error) {
	args := m.Called(ctx, guide, d, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*practice.MixResult), args.Error(1)
}

// fakeStorage хранит объекты в памяти
type fakeStorage struct {
	objects   map[string][]byte
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) key(c storage.Category, key string) string {
	return string(c) + "/" + key
}

func (f *fakeStorage) Upload(ctx context.Context, c storage.Category, key string, r io.Reader, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[f.key(c, key)] = data
	return nil
}

func (f *fakeStorage) Delete(ctx context.Context, c storage.Category, key string) error {
	delete(f.objects, f.key(c, key))
	return nil
}

func (f *fakeStorage) Download(ctx context.Context, c storage.Category, key string) (io.ReadCloser, error) {
	data, ok := f.objects[f.key(c, key)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) PublicURL(c storage.Category, key string) string {
	return "https://cdn.test/" + f.key(c, key)
}

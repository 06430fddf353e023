package liveavatar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/avatarapi"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// MockProvider реализует Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateSessionToken(ctx context.Context, roomName, language string) (*avatarapi.SessionToken, error) {
	args := m.Called(ctx, roomName, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*avatarapi.SessionToken), args.Error(1)
}

func (m *MockProvider) StopSession(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

// memoryRepo - потокобезопасная реализация repository.AvatarSessionRepository в памяти
type memoryRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]entity.AvatarSession
	messages map[uuid.UUID][]entity.AvatarMessage
	failMsg  bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sessions: make(map[uuid.UUID]entity.AvatarSession),
		messages: make(map[uuid.UUID][]entity.AvatarMessage),
	}
}

func (r *memoryRepo) Create(ctx context.Context, s *entity.AvatarSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.AvatarSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (r *memoryRepo) UpdateState(ctx context.Context, id uuid.UUID, state, errMsg string, endedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	s.State = state
	if errMsg != "" {
		s.Error = errMsg
	}
	if endedAt != nil {
		s.EndedAt = endedAt
	}
	r.sessions[id] = s
	return nil
}

func (r *memoryRepo) SetProviderSession(ctx context.Context, id uuid.UUID, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sessions[id]
	s.ProviderSessionID = providerID
	r.sessions[id] = s
	return nil
}

func (r *memoryRepo) AppendMessage(ctx context.Context, msg *entity.AvatarMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMsg {
		return errors.New("db down")
	}
	msg.ID = uuid.New()
	r.messages[msg.AvatarSessionID] = append(r.messages[msg.AvatarSessionID], *msg)
	return nil
}

func (r *memoryRepo) ListMessages(ctx context.Context, id uuid.UUID) ([]entity.AvatarMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.AvatarMessage(nil), r.messages[id]...), nil
}

func (r *memoryRepo) session(id uuid.UUID) entity.AvatarSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

type fixture struct {
	repo     *memoryRepo
	provider *MockProvider
	manager  *Manager
	userID   uuid.UUID
}

func newFixture() *fixture {
	repo := newMemoryRepo()
	provider := new(MockProvider)
	m := NewManager(repo, provider, logger.NewNop())
	return &fixture{repo: repo, provider: provider, manager: m, userID: uuid.New()}
}

func (f *fixture) open(t *testing.T) *Opened {
	t.Helper()
	f.provider.On("CreateSessionToken", mock.Anything, mock.AnythingOfType("string"), "en").
		Return(&avatarapi.SessionToken{SessionID: "prov-1", Token: "tok", URL: "wss://media.test"}, nil).Once()
	opened, err := f.manager.Open(context.Background(), f.userID, "en")
	require.NoError(t, err)
	return opened
}

func (f *fixture) event(t *testing.T, id uuid.UUID, typ EventType, text string) State {
	t.Helper()
	state, err := f.manager.HandleEvent(context.Background(), f.userID, id, Event{Type: typ, Text: text})
	require.NoError(t, err, "событие %s", typ)
	return state
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]State{
		{StateIdle, StateConnecting},
		{StateConnecting, StateConnected},
		{StateConnecting, StateError},
		{StateConnected, StateSpeaking},
		{StateSpeaking, StateListening},
		{StateListening, StateSpeaking},
		{StateListening, StateConnected},
		{StateSpeaking, StateIdle},
		{StateError, StateIdle},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]State{
		{StateIdle, StateConnected},
		{StateIdle, StateSpeaking},
		{StateConnecting, StateSpeaking},
		{StateConnected, StateError},
		{StateError, StateConnected},
		{StateListening, StateConnecting},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestEventValidate(t *testing.T) {
	assert.NoError(t, Event{Type: EventSpeakStarted}.Validate())
	assert.NoError(t, Event{Type: EventUserTranscription, Text: "hello"}.Validate())
	assert.ErrorIs(t, Event{Type: EventUserTranscription, Text: "   "}.Validate(), apperrors.ErrValidation)
	assert.ErrorIs(t, Event{Type: "media.track"}.Validate(), apperrors.ErrValidation)
	assert.ErrorIs(t, Event{Type: EventStateChanged}.Validate(), apperrors.ErrValidation, "серверное событие нельзя прислать извне")
}

func TestManager_Open(t *testing.T) {
	// Arrange
	f := newFixture()

	// Act
	opened := f.open(t)

	// Assert
	assert.Equal(t, "tok", opened.Token.Token)
	assert.Regexp(t, `^studyhub-[0-9a-z]{16}$`, opened.Session.RoomName)
	stored := f.repo.session(opened.Session.ID)
	assert.Equal(t, string(StateConnecting), stored.State)
	assert.Equal(t, "prov-1", stored.ProviderSessionID)

	s, ok := f.manager.Session(f.userID, opened.Session.ID)
	require.True(t, ok, "сессия должна быть в реестре")
	assert.Equal(t, StateConnecting, s.State())
}

func TestManager_Open_TokenFailure(t *testing.T) {
	f := newFixture()
	f.provider.On("CreateSessionToken", mock.Anything, mock.Anything, "").
		Return(nil, avatarapi.ErrNotConfigured)

	_, err := f.manager.Open(context.Background(), f.userID, "")

	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.ErrorIs(t, err, avatarapi.ErrNotConfigured)
	assert.Equal(t, 0, f.manager.ActiveCount())
	for _, s := range f.repo.sessions {
		assert.Equal(t, string(StateError), s.State)
		assert.NotNil(t, s.EndedAt)
	}
}

func TestManager_EventFlow(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID

	assert.Equal(t, StateConnected, f.event(t, id, EventSessionConnected, ""))
	assert.Equal(t, StateSpeaking, f.event(t, id, EventSpeakStarted, ""))
	assert.Equal(t, StateSpeaking, f.event(t, id, EventAvatarTranscription, " Hello! Let's study cells. "))
	assert.Equal(t, StateListening, f.event(t, id, EventSpeakEnded, ""))
	assert.Equal(t, StateListening, f.event(t, id, EventUserTranscription, "What is a membrane?"))
	assert.Equal(t, StateSpeaking, f.event(t, id, EventSpeakStarted, ""))
	assert.Equal(t, StateSpeaking, f.event(t, id, EventSpeakStarted, ""), "повтор события не меняет состояние")

	transcript, err := f.manager.Transcript(context.Background(), f.userID, id)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, entity.AvatarRoleAvatar, transcript[0].Role)
	assert.Equal(t, "Hello! Let's study cells.", transcript[0].Text)
	assert.Equal(t, entity.AvatarRoleUser, transcript[1].Role)
	assert.Equal(t, string(StateSpeaking), f.repo.session(id).State)
}

func TestManager_InvalidTransitions(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID
	ctx := context.Background()

	_, err := f.manager.HandleEvent(ctx, f.userID, id, Event{Type: EventSpeakStarted})
	assert.ErrorIs(t, err, apperrors.ErrConflict, "нельзя говорить до подключения")

	_, err = f.manager.HandleEvent(ctx, f.userID, id, Event{Type: EventUserTranscription, Text: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrConflict, "транскрипт только в активной сессии")

	s, _ := f.manager.Session(f.userID, id)
	assert.Equal(t, StateConnecting, s.State())
}

func TestManager_ErrorWhileConnecting(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID
	ctx := context.Background()
	f.provider.On("StopSession", mock.Anything, "prov-1").Return(nil).Once()

	state, err := f.manager.HandleEvent(ctx, f.userID, id, Event{Type: EventSessionError, Error: "media room unreachable"})
	require.NoError(t, err)
	assert.Equal(t, StateError, state)

	stored := f.repo.session(id)
	assert.Equal(t, string(StateError), stored.State)
	assert.Equal(t, "media room unreachable", stored.Error)
	assert.NotNil(t, stored.EndedAt)
	assert.Equal(t, 0, f.manager.ActiveCount(), "сессия с ошибкой не остается в реестре")

	_, err = f.manager.HandleEvent(ctx, f.userID, id, Event{Type: EventSessionConnected})
	assert.ErrorIs(t, err, apperrors.ErrConflict, "завершенная сессия не принимает события")

	require.NoError(t, f.manager.Stop(ctx, f.userID, id), "повторная остановка ничего не делает")
	assert.Equal(t, string(StateError), f.repo.session(id).State)
	f.provider.AssertExpectations(t)
}

func TestManager_ErrorWhileLiveClosesSession(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID
	f.provider.On("StopSession", mock.Anything, "prov-1").Return(nil).Once()
	f.event(t, id, EventSessionConnected, "")

	state, err := f.manager.HandleEvent(context.Background(), f.userID, id, Event{Type: EventSessionError, Error: "track lost"})

	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, 0, f.manager.ActiveCount())
}

func TestManager_TeardownRunsOnce(t *testing.T) {
	// Arrange
	f := newFixture()
	id := f.open(t).Session.ID
	f.provider.On("StopSession", mock.Anything, "prov-1").Return(nil)
	f.event(t, id, EventSessionConnected, "")
	ctx := context.Background()

	// Act
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = f.manager.Stop(ctx, f.userID, id)
			} else {
				_, _ = f.manager.HandleEvent(ctx, f.userID, id, Event{Type: EventSessionDisconnected})
			}
		}(i)
	}
	wg.Wait()

	// Assert
	f.provider.AssertNumberOfCalls(t, "StopSession", 1)
	assert.Equal(t, string(StateIdle), f.repo.session(id).State)
	assert.NoError(t, f.manager.Stop(ctx, f.userID, id), "повторная остановка - no-op")

	_, err := f.manager.HandleEvent(ctx, f.userID, id, Event{Type: EventSessionConnected})
	assert.ErrorIs(t, err, apperrors.ErrConflict, "завершенная сессия не принимает события")
}

func TestManager_ForeignSession(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID
	stranger := uuid.New()
	ctx := context.Background()

	_, err := f.manager.HandleEvent(ctx, stranger, id, Event{Type: EventSessionConnected})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, f.manager.Stop(ctx, stranger, id), apperrors.ErrNotFound)
	_, err = f.manager.Transcript(ctx, stranger, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestManager_TranscriptPersistFailure(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID
	f.event(t, id, EventSessionConnected, "")
	f.repo.failMsg = true

	_, err := f.manager.AppendMessage(context.Background(), f.userID, id, entity.AvatarRoleUser, "hello")

	assert.Error(t, err)
	s, _ := f.manager.Session(f.userID, id)
	assert.Empty(t, s.Transcript(), "несохраненная реплика не попадает в транскрипт")
}

func TestManager_AppendMessage_InvalidRole(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID

	_, err := f.manager.AppendMessage(context.Background(), f.userID, id, "system", "hi")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestManager_Subscribe(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID
	ctx := context.Background()
	f.provider.On("StopSession", mock.Anything, "prov-1").Return(nil)

	events, cancel, err := f.manager.Subscribe(ctx, f.userID, id)
	require.NoError(t, err)
	defer cancel()
	s, _ := f.manager.Session(f.userID, id)

	f.event(t, id, EventSessionConnected, "")
	f.event(t, id, EventUserTranscription, "hi")
	require.NoError(t, f.manager.Stop(ctx, f.userID, id))

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	assert.Equal(t, EventStateChanged, got[0].Type)
	assert.Equal(t, StateConnected, got[0].State)
	assert.Equal(t, EventUserTranscription, got[1].Type)
	assert.Equal(t, "hi", got[1].Text)
	assert.Equal(t, StateIdle, got[2].State)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done должен быть закрыт после остановки")
	}

	late, lateCancel := s.subscribe()
	defer lateCancel()
	_, open := <-late
	assert.False(t, open, "подписка на закрытую сессию сразу закрыта")
}

func TestManager_OpenReplacesPreviousSession(t *testing.T) {
	f := newFixture()
	first := f.open(t).Session.ID
	f.provider.On("StopSession", mock.Anything, "prov-1").Return(nil).Once()

	second := f.open(t).Session.ID

	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, f.manager.ActiveCount())
	assert.Equal(t, string(StateIdle), f.repo.session(first).State)
	f.provider.AssertExpectations(t)
}

func TestManager_Shutdown(t *testing.T) {
	f := newFixture()
	id := f.open(t).Session.ID
	f.provider.On("StopSession", mock.Anything, "prov-1").Return(errors.New("provider down"))

	f.manager.Shutdown(context.Background())

	assert.Equal(t, 0, f.manager.ActiveCount())
	assert.Equal(t, "server shutdown", f.repo.session(id).Error)
}

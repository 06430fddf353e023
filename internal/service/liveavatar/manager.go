package liveavatar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/avatarapi"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

const (
	roomAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	roomIDLength = 16
	roomPrefix   = "studyhub-"

	// stopTimeout ограничивает вызов провайдера при завершении сессии
	stopTimeout = 10 * time.Second
)

// Provider - сторона провайдера живого аватара
type Provider interface {
	CreateSessionToken(ctx context.Context, roomName, language string) (*avatarapi.SessionToken, error)
	StopSession(ctx context.Context, sessionID string) error
}

// Opened - результат открытия сессии: запись и токен для браузера
type Opened struct {
	Session *entity.AvatarSession  `json:"session"`
	Token   *avatarapi.SessionToken `json:"token"`
}

// Manager ведет реестр активных сессий процесса
type Manager struct {
	repo     repository.AvatarSessionRepository
	provider Provider
	log      *logger.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	now      func() time.Time
	roomName func() (string, error)
}

// NewManager создает менеджер сессий с аватаром
func NewManager(repo repository.AvatarSessionRepository, provider Provider, log *logger.Logger) *Manager {
	return &Manager{
		repo:     repo,
		provider: provider,
		log:      log,
		sessions: make(map[uuid.UUID]*Session),
		now:      func() time.Time { return time.Now().UTC() },
		roomName: newRoomName,
	}
}

func newRoomName() (string, error) {
	id, err := gonanoid.Generate(roomAlphabet, roomIDLength)
	if err != nil {
		return "", err
	}
	return roomPrefix + id, nil
}

// Open создает сессию и обменивает ключ API на токен провайдера.
// Предыдущая активная сессия пользователя завершается.
func (m *Manager) Open(ctx context.Context, userID uuid.UUID, language string) (*Opened, error) {
	for _, prev := range m.userSessions(userID) {
		m.teardown(ctx, prev, "")
	}

	room, err := m.roomName()
	if err != nil {
		return nil, fmt.Errorf("failed to generate room name: %w", err)
	}

	rec := &entity.AvatarSession{
		ID:        uuid.New(),
		UserID:    userID,
		RoomName:  room,
		State:     string(StateConnecting),
		StartedAt: m.now(),
	}
	if err := m.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create avatar session: %w", err)
	}

	token, err := m.provider.CreateSessionToken(ctx, room, strings.TrimSpace(language))
	if err != nil {
		ended := m.now()
		rec.State = string(StateError)
		rec.Error = err.Error()
		rec.EndedAt = &ended
		if uerr := m.repo.UpdateState(ctx, rec.ID, rec.State, rec.Error, &ended); uerr != nil {
			m.log.Warn("failed to persist avatar session error", "session_id", rec.ID, "error", uerr)
		}
		m.log.Error("avatar session token exchange failed", "session_id", rec.ID, "user_id", userID, "error", err)
		if errors.Is(err, apperrors.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUpstream, err)
	}

	rec.ProviderSessionID = token.SessionID
	if token.SessionID != "" {
		if err := m.repo.SetProviderSession(ctx, rec.ID, token.SessionID); err != nil {
			m.log.Warn("failed to persist provider session id", "session_id", rec.ID, "error", err)
		}
	}

	m.mu.Lock()
	m.sessions[rec.ID] = newSession(rec)
	m.mu.Unlock()

	m.log.Info("avatar session opened", "session_id", rec.ID, "user_id", userID, "room", room)
	return &Opened{Session: rec, Token: token}, nil
}

// HandleEvent применяет событие к сессии и возвращает новое состояние
func (m *Manager) HandleEvent(ctx context.Context, userID, sessionID uuid.UUID, ev Event) (State, error) {
	if err := ev.Validate(); err != nil {
		return "", err
	}
	s, err := m.active(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	if ev.At.IsZero() {
		ev.At = m.now()
	}
	ev.SessionID = s.ID.String()

	switch ev.Type {
	case EventUserTranscription, EventAvatarTranscription:
		if err := m.appendTranscript(ctx, s, ev); err != nil {
			return "", err
		}
		return s.State(), nil

	case EventSessionConnected:
		return m.move(ctx, s, StateConnected, "")

	case EventSpeakStarted:
		return m.move(ctx, s, StateSpeaking, "")

	case EventSpeakEnded:
		return m.move(ctx, s, StateListening, "")

	case EventSessionError:
		if s.State() == StateConnecting {
			// Сессия, не успевшая подключиться, завершается в состоянии error
			m.finish(ctx, s, StateError, errorText(ev))
			return StateError, nil
		}
		m.teardown(ctx, s, errorText(ev))
		return StateIdle, nil

	case EventSessionDisconnected:
		m.teardown(ctx, s, "")
		return StateIdle, nil
	}
	return "", fmt.Errorf("%w: unsupported event %q", apperrors.ErrValidation, ev.Type)
}

// AppendMessage сохраняет реплику транскрипта от имени role
func (m *Manager) AppendMessage(ctx context.Context, userID, sessionID uuid.UUID, role, text string) (State, error) {
	ev := Event{Text: text}
	switch role {
	case entity.AvatarRoleUser:
		ev.Type = EventUserTranscription
	case entity.AvatarRoleAvatar:
		ev.Type = EventAvatarTranscription
	default:
		return "", fmt.Errorf("%w: role must be user or avatar", apperrors.ErrValidation)
	}
	return m.HandleEvent(ctx, userID, sessionID, ev)
}

// Stop завершает сессию. Повторный вызов для завершенной сессии ничего не делает.
func (m *Manager) Stop(ctx context.Context, userID, sessionID uuid.UUID) error {
	s, err := m.active(ctx, userID, sessionID)
	if errors.Is(err, apperrors.ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	m.teardown(ctx, s, "")
	return nil
}

// Transcript возвращает сохраненный транскрипт сессии пользователя
func (m *Manager) Transcript(ctx context.Context, userID, sessionID uuid.UUID) ([]entity.AvatarMessage, error) {
	rec, err := m.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return m.repo.ListMessages(ctx, sessionID)
}

// Subscribe возвращает канал событий активной сессии и функцию отписки
func (m *Manager) Subscribe(ctx context.Context, userID, sessionID uuid.UUID) (<-chan Event, func(), error) {
	s, err := m.active(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.subscribe()
	return ch, cancel, nil
}

// Session возвращает активную сессию из реестра
func (m *Manager) Session(userID, sessionID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, false
	}
	return s, true
}

// ActiveCount возвращает число сессий в реестре
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown завершает все активные сессии при остановке сервера
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.teardown(ctx, s, "server shutdown")
	}
}

// active ищет сессию в реестре. Сессия, которая есть только в базе,
// считается завершенной (ErrConflict); чужая - отсутствующей.
func (m *Manager) active(ctx context.Context, userID, sessionID uuid.UUID) (*Session, error) {
	if s, ok := m.Session(userID, sessionID); ok {
		return s, nil
	}
	rec, err := m.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return nil, fmt.Errorf("%w: avatar session is not active", apperrors.ErrConflict)
}

func (m *Manager) userSessions(userID uuid.UUID) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) move(ctx context.Context, s *Session, to State, errMsg string) (State, error) {
	changed, err := s.transition(to, errMsg)
	if err != nil {
		return s.State(), err
	}
	if !changed {
		return to, nil
	}
	if err := m.repo.UpdateState(ctx, s.ID, string(to), errMsg, nil); err != nil {
		m.log.Warn("failed to persist avatar session state", "session_id", s.ID, "state", to, "error", err)
	}
	m.notifyState(s, to, errMsg)
	return to, nil
}

func (m *Manager) appendTranscript(ctx context.Context, s *Session, ev Event) error {
	if !s.State().IsLive() {
		return fmt.Errorf("%w: avatar session is %s", apperrors.ErrConflict, s.State())
	}
	role, _ := ev.role()
	msg := &entity.AvatarMessage{
		AvatarSessionID: s.ID,
		Role:            role,
		Text:            strings.TrimSpace(ev.Text),
		CreatedAt:       ev.At,
	}
	if err := m.repo.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist transcript message: %w", err)
	}
	s.appendMessage(*msg)
	ev.Text = msg.Text
	if dropped := s.broadcast(ev); dropped > 0 {
		m.log.Warn("avatar event dropped for slow subscribers", "session_id", s.ID, "dropped", dropped)
	}
	return nil
}

// teardown завершает сессию в состоянии idle
func (m *Manager) teardown(ctx context.Context, s *Session, errMsg string) bool {
	return m.finish(ctx, s, StateIdle, errMsg)
}

// finish выполняется один раз на сессию: остановка у провайдера,
// запись итогового состояния, удаление из реестра и закрытие подписчиков.
// Возвращает false, если сессию уже завершил другой вызов.
func (m *Manager) finish(ctx context.Context, s *Session, final State, errMsg string) bool {
	if !s.closing.CompareAndSwap(false, true) {
		return false
	}

	if s.ProviderSessionID != "" {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		if err := m.provider.StopSession(stopCtx, s.ProviderSessionID); err != nil {
			m.log.Warn("provider stop session failed", "session_id", s.ID, "error", err)
		}
		cancel()
	}

	s.forceState(final, errMsg)
	ended := m.now()
	if err := m.repo.UpdateState(context.WithoutCancel(ctx), s.ID, string(final), errMsg, &ended); err != nil {
		m.log.Warn("failed to persist avatar session end", "session_id", s.ID, "error", err)
	}

	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	m.notifyState(s, final, errMsg)
	s.close()

	m.log.Info("avatar session closed", "session_id", s.ID, "user_id", s.UserID, "state", final)
	return true
}

func (m *Manager) notifyState(s *Session, state State, errMsg string) {
	s.broadcast(Event{
		Type:      EventStateChanged,
		State:     state,
		Error:     errMsg,
		SessionID: s.ID.String(),
		At:        m.now(),
	})
}

func errorText(ev Event) string {
	if msg := strings.TrimSpace(ev.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(ev.Text); msg != "" {
		return msg
	}
	return "provider reported an error"
}

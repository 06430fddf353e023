package liveavatar

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
)

// subscriberBuffer - размер буфера канала одного подписчика
const subscriberBuffer = 32

// Session - активная сессия с аватаром в реестре процесса
type Session struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	RoomName          string
	ProviderSessionID string
	StartedAt         time.Time

	mu         sync.Mutex
	state      State
	lastError  string
	transcript []entity.AvatarMessage
	subs       map[uint64]chan Event
	nextSub    uint64

	// closing переводится в true ровно одним вызовом teardown
	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(rec *entity.AvatarSession) *Session {
	return &Session{
		ID:                rec.ID,
		UserID:            rec.UserID,
		RoomName:          rec.RoomName,
		ProviderSessionID: rec.ProviderSessionID,
		StartedAt:         rec.StartedAt,
		state:             State(rec.State),
		subs:              make(map[uint64]chan Event),
		done:              make(chan struct{}),
	}
}

// State возвращает текущее состояние
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError возвращает последнюю ошибку провайдера
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Transcript возвращает копию транскрипта, накопленного в памяти
func (s *Session) Transcript() []entity.AvatarMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.AvatarMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Done закрывается после завершения сессии
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// transition меняет состояние, если переход разрешен.
// Повторный переход в текущее состояние не считается ошибкой.
func (s *Session) transition(to State, errMsg string) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == to {
		return false, nil
	}
	if !CanTransition(s.state, to) {
		return false, transitionError(s.state, to)
	}
	s.state = to
	if errMsg != "" {
		s.lastError = errMsg
	}
	return true, nil
}

// forceState задает итоговое состояние при завершении сессии из любого состояния
func (s *Session) forceState(state State, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if errMsg != "" {
		s.lastError = errMsg
	}
}

func (s *Session) appendMessage(msg entity.AvatarMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, msg)
}

// subscribe регистрирует получателя событий сессии
func (s *Session) subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.closing.Load() {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// broadcast рассылает событие без блокировки; медленный подписчик теряет событие
func (s *Session) broadcast(ev Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}

// close закрывает каналы подписчиков и done
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
		close(s.done)
	})
}

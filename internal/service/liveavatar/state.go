package liveavatar

import (
	"fmt"

	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
)

// State - состояние сессии с живым аватаром
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateSpeaking   State = "speaking"
	StateListening  State = "listening"
	StateError      State = "error"
)

// transitions - допустимые переходы конечного автомата.
// Из любого активного состояния сессия может вернуться в idle (отключение).
var transitions = map[State][]State{
	StateIdle:       {StateConnecting},
	StateConnecting: {StateConnected, StateError, StateIdle},
	StateConnected:  {StateSpeaking, StateListening, StateIdle},
	StateSpeaking:   {StateListening, StateConnected, StateIdle},
	StateListening:  {StateSpeaking, StateConnected, StateIdle},
	StateError:      {StateIdle},
}

// CanTransition сообщает, разрешен ли переход from -> to
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsLive возвращает true для состояний, в которых идет медиа-сессия
func (s State) IsLive() bool {
	return s == StateConnected || s == StateSpeaking || s == StateListening
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: invalid avatar session transition %s -> %s", apperrors.ErrConflict, from, to)
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/internal/service/liveavatar"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// incoming - входящее сообщение: тег события и полезная нагрузка
type incoming struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const errorEventType = "server:error"

// AvatarSessions - операции над сессиями аватара, нужные ретранслятору
type AvatarSessions interface {
	HandleEvent(ctx context.Context, userID, sessionID uuid.UUID, ev liveavatar.Event) (liveavatar.State, error)
	Subscribe(ctx context.Context, userID, sessionID uuid.UUID) (<-chan liveavatar.Event, func(), error)
}

// Manager связывает WebSocket-клиентов с сессиями аватара:
// входящие события применяются к сессии, события сессии пересылаются клиенту.
type Manager struct {
	sessions AvatarSessions
	metrics  *Metrics
	cfg      ClientConfig
	log      *logger.Logger
}

// NewManager создает менеджер ретрансляции
func NewManager(sessions AvatarSessions, metrics *Metrics, log *logger.Logger) *Manager {
	return &Manager{
		sessions: sessions,
		metrics:  metrics,
		cfg:      DefaultClientConfig(),
		log:      log,
	}
}

// Metrics возвращает счетчики ретранслятора
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// NewClient создает клиента с настройками менеджера
func (m *Manager) NewClient(conn *websocket.Conn, userID, sessionID uuid.UUID) *Client {
	return NewClient(conn, userID, sessionID, m.cfg, m.metrics, m.log)
}

// Subscribe проверяет доступ к сессии до апгрейда соединения
func (m *Manager) Subscribe(ctx context.Context, userID, sessionID uuid.UUID) (<-chan liveavatar.Event, func(), error) {
	return m.sessions.Subscribe(ctx, userID, sessionID)
}

// Serve обслуживает соединение до его закрытия или завершения сессии
func (m *Manager) Serve(ctx context.Context, client *Client, events <-chan liveavatar.Event, cancel func()) {
	defer cancel()

	go func() {
		for ev := range events {
			_ = client.SendJSON(Event{Type: string(ev.Type), Data: ev})
		}
		// Сессия завершена: закрываем канал, writePump отправит close frame
		client.CloseSend()
	}()

	client.Run(func(message []byte, c *Client) error {
		return m.HandleMessage(ctx, message, c)
	})
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, только если соединение нужно закрыть.
func (m *Manager) HandleMessage(ctx context.Context, message []byte, client *Client) error {
	var in incoming
	if err := json.Unmarshal(message, &in); err != nil {
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	ev := liveavatar.Event{Type: liveavatar.EventType(in.Type)}
	if len(in.Data) > 0 && string(in.Data) != "null" {
		if err := json.Unmarshal(in.Data, &ev); err != nil {
			m.SendErrorToClient(client, "invalid_message_format", "Invalid event payload")
			return nil
		}
		ev.Type = liveavatar.EventType(in.Type)
	}

	state, err := m.sessions.HandleEvent(ctx, client.UserID, client.SessionID, ev)
	switch {
	case err == nil:
		_ = client.SendJSON(Event{Type: "event:ack", Data: map[string]string{"event": in.Type, "state": string(state)}})
		return nil
	case errors.Is(err, apperrors.ErrValidation):
		m.SendErrorToClient(client, "invalid_event", err.Error())
		return nil
	case errors.Is(err, apperrors.ErrConflict):
		m.SendErrorToClient(client, "invalid_state", err.Error())
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		m.SendErrorToClient(client, "session_not_found", "Session not found")
		return err
	default:
		m.log.Error("failed to apply avatar event", "type", in.Type, "session_id", client.SessionID, "error", err)
		m.SendErrorToClient(client, "internal_error", "Failed to process event")
		return nil
	}
}

// SendErrorToClient отправляет стандартизированное сообщение об ошибке клиенту.
// Этот метод НЕ закрывает соединение.
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	errorEvent := Event{
		Type: errorEventType,
		Data: map[string]string{
			"code":    code,
			"message": message,
		},
	}
	if err := client.SendJSON(errorEvent); err != nil {
		m.log.Debug("failed to send error to websocket client", "conn_id", client.ConnectionID, "error", err)
	}
}

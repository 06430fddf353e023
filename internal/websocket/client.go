package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yourusername/studyhub-api/pkg/logger"
)

const (
	// Время, разрешенное для записи сообщения клиенту
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 30 * time.Second

	// Период отправки ping. Должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения (реплика транскрипта + конверт)
	maxMessageSize = 16 * 1024

	defaultClientBufferSize = 128
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// ClientConfig содержит параметры клиента
type ClientConfig struct {
	BufferSize int
}

// DefaultClientConfig возвращает конфигурацию по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{BufferSize: defaultClientBufferSize}
}

// MessageHandler обрабатывает входящее сообщение.
// Возвращенная ошибка закрывает соединение.
type MessageHandler func(message []byte, client *Client) error

// Client - одно WebSocket-соединение пользователя с сессией аватара
type Client struct {
	UserID       uuid.UUID
	SessionID    uuid.UUID
	ConnectionID string

	conn    *websocket.Conn
	send    chan []byte
	log     *logger.Logger
	metrics *Metrics

	// Флаг, указывающий что канал send закрыт (для предотвращения panic).
	// sendMu не дает закрыть канал во время отправки.
	sendClosed atomic.Bool
	sendMu     sync.RWMutex

	lastActivity atomic.Int64
}

// NewClient создает клиента для соединения conn
func NewClient(conn *websocket.Conn, userID, sessionID uuid.UUID, cfg ClientConfig, metrics *Metrics, log *logger.Logger) *Client {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultClientBufferSize
	}
	c := &Client{
		UserID:       userID,
		SessionID:    sessionID,
		ConnectionID: uuid.NewString(),
		conn:         conn,
		send:         make(chan []byte, cfg.BufferSize),
		metrics:      metrics,
	}
	c.log = log.With("user_id", userID, "session_id", sessionID, "conn_id", c.ConnectionID)
	c.touch()
	return c
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity возвращает время последнего сообщения или pong
func (c *Client) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// SendJSON ставит событие в очередь на отправку.
// При переполненном буфере событие отбрасывается.
func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal websocket message: %w", err)
	}
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.sendClosed.Load() {
		return fmt.Errorf("client %s: send channel closed", c.ConnectionID)
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.metrics.addDropped()
		c.log.Warn("websocket send buffer is full, message dropped", "type", messageTypeFromBytes(data))
		return fmt.Errorf("client %s: send buffer full", c.ConnectionID)
	}
}

// CloseSend безопасно закрывает канал send (только один раз).
// Возвращает true, если канал был закрыт этим вызовом.
func (c *Client) CloseSend() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// Run запускает writePump и блокируется в readPump до закрытия соединения
func (c *Client) Run(handler MessageHandler) {
	c.metrics.connected()
	defer c.metrics.disconnected()

	go c.writePump()
	c.readPump(handler)
}

// readPump читает сообщения от клиента и передает их обработчику
func (c *Client) readPump(handler MessageHandler) {
	defer func() {
		c.CloseSend()
		c.conn.Close()
		c.log.Debug("websocket read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read error", "error", err)
				c.metrics.addError()
			}
			return
		}
		c.touch()
		c.metrics.addReceived()

		if err := c.safeHandle(message, handler); err != nil {
			c.log.Warn("websocket handler error, closing connection", "error", err)
			return
		}
	}
}

// safeHandle вызывает обработчик с recover
func (c *Client) safeHandle(message []byte, handler MessageHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic recovered in websocket handler", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.ReplaceAll(message, newline, space))
	if handler == nil {
		return nil
	}
	return handler(message, c)
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("websocket write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("websocket write error", "error", err)
				c.metrics.addError()
				return
			}
			c.metrics.addSent()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// messageTypeFromBytes пытается извлечь тип сообщения из JSON
func messageTypeFromBytes(message []byte) string {
	var event struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(message, &event) == nil && event.Type != "" {
		return event.Type
	}
	return "unknown"
}

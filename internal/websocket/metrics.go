package websocket

import (
	"sync/atomic"
	"time"
)

// Metrics - счетчики ретранслятора событий.
// Нулевой указатель допустим: методы ничего не делают.
type Metrics struct {
	totalConnections  atomic.Int64
	activeConnections atomic.Int64
	messagesSent      atomic.Int64
	messagesReceived  atomic.Int64
	messagesDropped   atomic.Int64
	connectionErrors  atomic.Int64
	startTime         time.Time
}

// NewMetrics создает счетчики
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) connected() {
	if m == nil {
		return
	}
	m.totalConnections.Add(1)
	m.activeConnections.Add(1)
}

func (m *Metrics) disconnected() {
	if m == nil {
		return
	}
	m.activeConnections.Add(-1)
}

func (m *Metrics) addSent() {
	if m != nil {
		m.messagesSent.Add(1)
	}
}

func (m *Metrics) addReceived() {
	if m != nil {
		m.messagesReceived.Add(1)
	}
}

func (m *Metrics) addDropped() {
	if m != nil {
		m.messagesDropped.Add(1)
	}
}

func (m *Metrics) addError() {
	if m != nil {
		m.connectionErrors.Add(1)
	}
}

// ActiveConnections возвращает число открытых соединений
func (m *Metrics) ActiveConnections() int64 {
	if m == nil {
		return 0
	}
	return m.activeConnections.Load()
}

// Snapshot возвращает метрики в виде карты для JSON-ответа
func (m *Metrics) Snapshot() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{
		"total_connections":  m.totalConnections.Load(),
		"active_connections": m.activeConnections.Load(),
		"messages_sent":      m.messagesSent.Load(),
		"messages_received":  m.messagesReceived.Load(),
		"messages_dropped":   m.messagesDropped.Load(),
		"connection_errors":  m.connectionErrors.Load(),
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
	}
}

package rabbitmq

import (
	"brokerage-backoffice/internal/core/port"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectInterval = 10 * time.Second

// ConnectionManager держит одно соединение с RabbitMQ и восстанавливает его в фоне.
type ConnectionManager struct {
	url        string
	connection *amqp.Connection
	mu         sync.RWMutex
	logger     port.LoggerPort

	stop     chan struct{}
	stopOnce sync.Once
}

// NewConnectionManager подключается сразу: недоступный брокер - ошибка старта.
func NewConnectionManager(url string, logger port.LoggerPort) (*ConnectionManager, error) {
	m := &ConnectionManager{
		url:    url,
		logger: logger.WithFields(port.Fields{"component": "RabbitMQConnectionManager"}),
		stop:   make(chan struct{}),
	}
	if _, err := m.getConnection(); err != nil {
		return nil, fmt.Errorf("initial connection failed: %w", err)
	}
	go m.handleReconnect()
	return m, nil
}

func (m *ConnectionManager) getConnection() (*amqp.Connection, error) {
	m.mu.RLock()
	if m.connection != nil && !m.connection.IsClosed() {
		defer m.mu.RUnlock()
		return m.connection, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	// другая горутина могла уже переподключиться
	if m.connection != nil && !m.connection.IsClosed() {
		return m.connection, nil
	}

	m.logger.Debug("Connecting to RabbitMQ", nil)
	conn, err := amqp.Dial(m.url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	m.connection = conn
	m.logger.Info("Connected to RabbitMQ", nil)
	return conn, nil
}

// Channel открывает новый канал на общем соединении.
func (m *ConnectionManager) Channel() (*amqp.Channel, error) {
	conn, err := m.getConnection()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	return ch, nil
}

func (m *ConnectionManager) handleReconnect() {
	ticker := time.NewTicker(reconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}

		m.mu.RLock()
		healthy := m.connection != nil && !m.connection.IsClosed()
		m.mu.RUnlock()
		if healthy {
			continue
		}

		m.logger.Warn("Detected closed RabbitMQ connection, reconnecting", nil)
		if _, err := m.getConnection(); err != nil {
			m.logger.Error("RabbitMQ reconnect failed", err, nil)
		}
	}
}

// Close останавливает переподключение и закрывает соединение.
func (m *ConnectionManager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connection == nil || m.connection.IsClosed() {
		return nil
	}
	if err := m.connection.Close(); err != nil {
		m.logger.Error("Failed to close RabbitMQ connection", err, nil)
		return err
	}
	m.logger.Info("RabbitMQ connection closed", nil)
	return nil
}

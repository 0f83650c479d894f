package rabbitmq

import (
	"brokerage-backoffice/internal/core/port"
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublisherConfig - параметры обменника, в который публикуются события.
type PublisherConfig struct {
	ExchangeName string
	ExchangeType string // direct, fanout, topic, headers
	Durable      bool
}

// Publisher публикует сообщения в один обменник. Закрытый канал переоткрывается при следующей публикации.
type Publisher struct {
	config  PublisherConfig
	manager *ConnectionManager
	logger  port.LoggerPort

	mu      sync.Mutex
	channel *amqp.Channel
}

func NewPublisher(cfg PublisherConfig, manager *ConnectionManager, logger port.LoggerPort) (*Publisher, error) {
	if manager == nil {
		return nil, errors.New("publisher: connection manager cannot be nil")
	}
	if cfg.ExchangeName == "" {
		return nil, errors.New("publisher: exchange name is required")
	}
	if cfg.ExchangeType == "" {
		cfg.ExchangeType = amqp.ExchangeTopic
	}

	p := &Publisher{
		config:  cfg,
		manager: manager,
		logger: logger.WithFields(port.Fields{
			"component": "RabbitMQPublisher",
			"exchange":  cfg.ExchangeName,
		}),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.ensureChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

// ensureChannel вызывается под p.mu.
func (p *Publisher) ensureChannel() (*amqp.Channel, error) {
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	ch, err := p.manager.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(
		p.config.ExchangeName,
		p.config.ExchangeType,
		p.config.Durable,
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("publisher: failed to declare exchange '%s': %w", p.config.ExchangeName, err)
	}
	p.logger.Debug("Exchange declared", port.Fields{"type": p.config.ExchangeType})
	p.channel = ch
	return ch, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.ensureChannel()
	if err != nil {
		return fmt.Errorf("publisher: channel unavailable: %w", err)
	}
	if err := ch.PublishWithContext(ctx, p.config.ExchangeName, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publisher: failed to publish message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return nil
	}
	err := p.channel.Close()
	p.channel = nil
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		p.logger.Error("Error closing publisher channel", err, nil)
		return err
	}
	return nil
}

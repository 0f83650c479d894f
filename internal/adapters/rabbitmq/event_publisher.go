package rabbitmq

import (
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// MessagePublisher - то, что EventPublisher требует от канала RabbitMQ.
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// EventPublisher отправляет доменные события CRM в topic-обменник.
// Ключ маршрутизации - "<prefix>.<тип события>", например "crm.deal.status_changed".
type EventPublisher struct {
	publisher MessagePublisher
	prefix    string
}

var _ port.EventPublisherPort = (*EventPublisher)(nil)

func NewEventPublisher(publisher MessagePublisher, routingPrefix string) (*EventPublisher, error) {
	if publisher == nil {
		return nil, errors.New("rabbitmq adapter: publisher cannot be nil")
	}
	return &EventPublisher{publisher: publisher, prefix: routingPrefix}, nil
}

func (a *EventPublisher) routingKey(eventType string) string {
	if a.prefix == "" {
		return eventType
	}
	return a.prefix + "." + eventType
}

func (a *EventPublisher) Publish(ctx context.Context, event domain.CRMEvent) error {
	routingKey := a.routingKey(event.Type)
	adapterLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "EventPublisher",
		"routing_key": routingKey,
	})

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal event %s: %w", event.Type, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Headers:      make(amqp.Table),
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	// публикация не должна зависеть от отмены HTTP-запроса, который уже получил ответ
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := a.publisher.Publish(publishCtx, routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish CRM event", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish event %s: %w", event.Type, err)
	}
	adapterLogger.Debug("CRM event published", port.Fields{"message_id": msg.MessageId})
	return nil
}

package rabbitmq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"brokerage-backoffice/internal/adapters/rabbitmq"
	"brokerage-backoffice/internal/contextkeys"
	"brokerage-backoffice/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	routingKey string
	msg        amqp.Publishing
	ctxErr     error
	err        error
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	f.routingKey = routingKey
	f.msg = msg
	f.ctxErr = ctx.Err()
	return f.err
}

func TestNewEventPublisher_RequiresPublisher(t *testing.T) {
	t.Parallel()

	_, err := rabbitmq.NewEventPublisher(nil, "crm")
	assert.Error(t, err)
}

func TestPublish_BuildsPersistentJSONMessage(t *testing.T) {
	t.Parallel()

	fake := &fakePublisher{}
	pub, err := rabbitmq.NewEventPublisher(fake, "crm")
	require.NoError(t, err)

	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-1")
	event := domain.NewCRMEvent(domain.EventDealStatusChanged, "p1", 7, map[string]any{"status": "WON"})
	require.NoError(t, pub.Publish(ctx, event))

	assert.Equal(t, "crm.deal.status_changed", fake.routingKey)
	assert.Equal(t, "application/json", fake.msg.ContentType)
	assert.Equal(t, amqp.Persistent, fake.msg.DeliveryMode)
	assert.Equal(t, "trace-1", fake.msg.Headers["x-trace-id"])
	assert.NotEmpty(t, fake.msg.MessageId)

	var decoded domain.CRMEvent
	require.NoError(t, json.Unmarshal(fake.msg.Body, &decoded))
	assert.Equal(t, int64(7), decoded.EntityID)
	assert.Equal(t, "p1", decoded.PipelineID)
}

func TestPublish_SurvivesCancelledRequestContext(t *testing.T) {
	t.Parallel()

	fake := &fakePublisher{}
	pub, _ := rabbitmq.NewEventPublisher(fake, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, pub.Publish(ctx, domain.NewCRMEvent(domain.EventLeadConverted, "p1", 1, nil)))
	assert.Equal(t, "lead.converted", fake.routingKey)
	assert.NoError(t, fake.ctxErr)
}

func TestPublish_WrapsBrokerError(t *testing.T) {
	t.Parallel()

	broker := errors.New("channel closed")
	pub, _ := rabbitmq.NewEventPublisher(&fakePublisher{err: broker}, "crm")

	err := pub.Publish(context.Background(), domain.NewCRMEvent(domain.EventStageCreated, "p1", 3, nil))
	assert.ErrorIs(t, err, broker)
}

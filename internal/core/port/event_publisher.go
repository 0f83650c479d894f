package port

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
)

// EventPublisherPort публикует доменные события CRM во внешний брокер.
// Ошибка публикации не должна откатывать уже подтвержденную мутацию.
type EventPublisherPort interface {
	Publish(ctx context.Context, event domain.CRMEvent) error
}

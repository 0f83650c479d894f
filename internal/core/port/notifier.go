package port

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
)

// BoardEvent - изменение состояния доски, которое получают подписчики.
type BoardEvent struct {
	Type       string           `json:"type"`
	PipelineID string           `json:"pipeline_id"`
	Pipeline   *domain.Pipeline `json:"-"`
	Detail     map[string]any   `json:"detail,omitempty"`
}

// BoardNotifierPort - контракт для рассылки изменений доски в реальном времени.
type BoardNotifierPort interface {
	Notify(ctx context.Context, event BoardEvent)
}

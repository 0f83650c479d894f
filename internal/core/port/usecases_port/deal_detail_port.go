package usecases_port

import (
	"brokerage-backoffice/internal/core/usecase"
	"context"
)

// DealDetailsUseCasePort выдает контроллер открытой сделки.
type DealDetailsUseCasePort interface {
	Open(ctx context.Context, dealID int64) (*usecase.DealDetailController, usecase.DealView, error)
	Get(ctx context.Context, dealID int64) (*usecase.DealDetailController, error)
	Forget(dealID int64)
}

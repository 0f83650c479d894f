package usecases_port

import (
	"brokerage-backoffice/internal/core/board"
	"brokerage-backoffice/internal/core/domain"
	"context"
)

type BoardUseCasePort interface {
	Board(ctx context.Context, pipelineID string) (board.Board, error)
	Select(ctx context.Context, pipelineID string) (board.Board, error)
	Reload(ctx context.Context) (board.Board, error)
	CreateDeal(ctx context.Context, input domain.DealInput) (domain.Deal, error)
}

package port

import (
	"brokerage-backoffice/internal/core/domain"
	"context"

	"github.com/google/uuid"
)

// ConversionJournalPort - журнал саги "лид -> сделка".
type ConversionJournalPort interface {
	Begin(ctx context.Context, leadID, stageID int64) (domain.ConversionRecord, error)
	MarkDealCreated(ctx context.Context, id uuid.UUID, dealID int64) error
	Finish(ctx context.Context, id uuid.UUID, state domain.ConversionState, lastErr error) error
	FindPending(ctx context.Context) ([]domain.ConversionRecord, error)
}

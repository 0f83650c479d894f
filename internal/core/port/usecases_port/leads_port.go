package usecases_port

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
)

type LeadsUseCasePort interface {
	List(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error)
	Get(ctx context.Context, leadID int64) (domain.Lead, error)
	Create(ctx context.Context, input domain.LeadInput) (domain.Lead, error)
	Update(ctx context.Context, leadID int64, input domain.LeadInput) (domain.Lead, error)
	ChangeStatus(ctx context.Context, leadID int64, status domain.LeadStatus) error
	Delete(ctx context.Context, leadID int64, confirmed bool) error
	ConvertToDeal(ctx context.Context, leadID, stageID int64) (domain.Deal, error)
}

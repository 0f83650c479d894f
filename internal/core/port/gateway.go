package port

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
)

// Порты удаленного REST API. Реализация - единственное место в сервисе, где выполняется сетевой I/O.
// Каждый метод - ровно один HTTP-вызов, без повторов и дедупликации.

// PipelineGatewayPort - воронки и этапы.
type PipelineGatewayPort interface {
	ListPipelines(ctx context.Context) ([]domain.Pipeline, error)
	CreatePipeline(ctx context.Context, name string) (domain.Pipeline, error)
	RenamePipeline(ctx context.Context, pipelineID, name string) error
	DeletePipeline(ctx context.Context, pipelineID string) error

	CreateStage(ctx context.Context, pipelineID string, stage domain.Stage) (domain.Stage, error)
	UpdateStage(ctx context.Context, stage domain.Stage) (domain.Stage, error)
	DeleteStage(ctx context.Context, stageID int64) error
}

// DealGatewayPort - сделки и их вкладки.
type DealGatewayPort interface {
	CreateDeal(ctx context.Context, input domain.DealInput) (domain.Deal, error)
	GetDeal(ctx context.Context, dealID int64) (domain.DealDetail, error)
	DeleteDeal(ctx context.Context, dealID int64) error
	UpdateDealStatus(ctx context.Context, dealID int64, change domain.StatusChange) (domain.Deal, error)
	LinkListing(ctx context.Context, dealID int64, listingID string) error
	UnlinkListing(ctx context.Context, dealID int64, listingID string) error

	CreateTask(ctx context.Context, dealID int64, input domain.TaskInput) (domain.Task, error)
	SetTaskCompleted(ctx context.Context, taskID int64, completed bool) error
	DeleteTask(ctx context.Context, taskID int64) error

	AddNote(ctx context.Context, dealID int64, text string) (domain.HistoryEntry, error)
}

// LeadGatewayPort - лиды.
type LeadGatewayPort interface {
	ListLeads(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error)
	GetLead(ctx context.Context, leadID int64) (domain.Lead, error)
	CreateLead(ctx context.Context, input domain.LeadInput) (domain.Lead, error)
	UpdateLead(ctx context.Context, leadID int64, input domain.LeadInput) (domain.Lead, error)
	UpdateLeadStatus(ctx context.Context, leadID int64, status domain.LeadStatus) error
	DeleteLead(ctx context.Context, leadID int64) error
}

// ListingGatewayPort - объекты недвижимости.
type ListingGatewayPort interface {
	SearchListings(ctx context.Context, keyword string, page, limit int) (domain.ListingPage, error)
	GetListing(ctx context.Context, listingID string) (domain.Listing, error)
	GetListingsByIDs(ctx context.Context, listingIDs []string) ([]domain.ListingCard, error)
	CreateListing(ctx context.Context, listing domain.Listing) (domain.Listing, error)
	UpdateListing(ctx context.Context, listingID string, listing domain.Listing) (domain.Listing, error)
}

// FavoritesGatewayPort - избранное витрины.
type FavoritesGatewayPort interface {
	ListFavoriteIDs(ctx context.Context, limit, offset int) (domain.PaginatedFavoriteIDs, error)
	AllFavoriteIDs(ctx context.Context) ([]string, error)
	AddFavorite(ctx context.Context, listingID string) error
	RemoveFavorite(ctx context.Context, listingID string) error
}

// Package mocks содержит testify-моки исходящих портов.
package mocks

import (
	"brokerage-backoffice/internal/core/domain"
	"context"

	"github.com/stretchr/testify/mock"
)

type PipelineGateway struct{ mock.Mock }

func (m *PipelineGateway) ListPipelines(ctx context.Context) ([]domain.Pipeline, error) {
	args := m.Called(ctx)
	pipelines, _ := args.Get(0).([]domain.Pipeline)
	return pipelines, args.Error(1)
}

func (m *PipelineGateway) CreatePipeline(ctx context.Context, name string) (domain.Pipeline, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.Pipeline), args.Error(1)
}

func (m *PipelineGateway) RenamePipeline(ctx context.Context, pipelineID, name string) error {
	return m.Called(ctx, pipelineID, name).Error(0)
}

func (m *PipelineGateway) DeletePipeline(ctx context.Context, pipelineID string) error {
	return m.Called(ctx, pipelineID).Error(0)
}

func (m *PipelineGateway) CreateStage(ctx context.Context, pipelineID string, stage domain.Stage) (domain.Stage, error) {
	args := m.Called(ctx, pipelineID, stage)
	return args.Get(0).(domain.Stage), args.Error(1)
}

func (m *PipelineGateway) UpdateStage(ctx context.Context, stage domain.Stage) (domain.Stage, error) {
	args := m.Called(ctx, stage)
	return args.Get(0).(domain.Stage), args.Error(1)
}

func (m *PipelineGateway) DeleteStage(ctx context.Context, stageID int64) error {
	return m.Called(ctx, stageID).Error(0)
}

type DealGateway struct{ mock.Mock }

func (m *DealGateway) CreateDeal(ctx context.Context, input domain.DealInput) (domain.Deal, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.Deal), args.Error(1)
}

func (m *DealGateway) GetDeal(ctx context.Context, dealID int64) (domain.DealDetail, error) {
	args := m.Called(ctx, dealID)
	return args.Get(0).(domain.DealDetail), args.Error(1)
}

func (m *DealGateway) DeleteDeal(ctx context.Context, dealID int64) error {
	return m.Called(ctx, dealID).Error(0)
}

func (m *DealGateway) UpdateDealStatus(ctx context.Context, dealID int64, change domain.StatusChange) (domain.Deal, error) {
	args := m.Called(ctx, dealID, change)
	return args.Get(0).(domain.Deal), args.Error(1)
}

func (m *DealGateway) LinkListing(ctx context.Context, dealID int64, listingID string) error {
	return m.Called(ctx, dealID, listingID).Error(0)
}

func (m *DealGateway) UnlinkListing(ctx context.Context, dealID int64, listingID string) error {
	return m.Called(ctx, dealID, listingID).Error(0)
}

func (m *DealGateway) CreateTask(ctx context.Context, dealID int64, input domain.TaskInput) (domain.Task, error) {
	args := m.Called(ctx, dealID, input)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *DealGateway) SetTaskCompleted(ctx context.Context, taskID int64, completed bool) error {
	return m.Called(ctx, taskID, completed).Error(0)
}

func (m *DealGateway) DeleteTask(ctx context.Context, taskID int64) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *DealGateway) AddNote(ctx context.Context, dealID int64, text string) (domain.HistoryEntry, error) {
	args := m.Called(ctx, dealID, text)
	return args.Get(0).(domain.HistoryEntry), args.Error(1)
}

type LeadGateway struct{ mock.Mock }

func (m *LeadGateway) ListLeads(ctx context.Context, status domain.LeadStatus) ([]domain.Lead, error) {
	args := m.Called(ctx, status)
	leads, _ := args.Get(0).([]domain.Lead)
	return leads, args.Error(1)
}

func (m *LeadGateway) GetLead(ctx context.Context, leadID int64) (domain.Lead, error) {
	args := m.Called(ctx, leadID)
	return args.Get(0).(domain.Lead), args.Error(1)
}

func (m *LeadGateway) CreateLead(ctx context.Context, input domain.LeadInput) (domain.Lead, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.Lead), args.Error(1)
}

func (m *LeadGateway) UpdateLead(ctx context.Context, leadID int64, input domain.LeadInput) (domain.Lead, error) {
	args := m.Called(ctx, leadID, input)
	return args.Get(0).(domain.Lead), args.Error(1)
}

func (m *LeadGateway) UpdateLeadStatus(ctx context.Context, leadID int64, status domain.LeadStatus) error {
	return m.Called(ctx, leadID, status).Error(0)
}

func (m *LeadGateway) DeleteLead(ctx context.Context, leadID int64) error {
	return m.Called(ctx, leadID).Error(0)
}

type ListingGateway struct{ mock.Mock }

func (m *ListingGateway) SearchListings(ctx context.Context, keyword string, page, limit int) (domain.ListingPage, error) {
	args := m.Called(ctx, keyword, page, limit)
	return args.Get(0).(domain.ListingPage), args.Error(1)
}

func (m *ListingGateway) GetListing(ctx context.Context, listingID string) (domain.Listing, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(domain.Listing), args.Error(1)
}

func (m *ListingGateway) GetListingsByIDs(ctx context.Context, listingIDs []string) ([]domain.ListingCard, error) {
	args := m.Called(ctx, listingIDs)
	cards, _ := args.Get(0).([]domain.ListingCard)
	return cards, args.Error(1)
}

func (m *ListingGateway) CreateListing(ctx context.Context, listing domain.Listing) (domain.Listing, error) {
	args := m.Called(ctx, listing)
	return args.Get(0).(domain.Listing), args.Error(1)
}

func (m *ListingGateway) UpdateListing(ctx context.Context, listingID string, listing domain.Listing) (domain.Listing, error) {
	args := m.Called(ctx, listingID, listing)
	return args.Get(0).(domain.Listing), args.Error(1)
}

type FavoritesGateway struct{ mock.Mock }

func (m *FavoritesGateway) ListFavoriteIDs(ctx context.Context, limit, offset int) (domain.PaginatedFavoriteIDs, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).(domain.PaginatedFavoriteIDs), args.Error(1)
}

func (m *FavoritesGateway) AllFavoriteIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *FavoritesGateway) AddFavorite(ctx context.Context, listingID string) error {
	return m.Called(ctx, listingID).Error(0)
}

func (m *FavoritesGateway) RemoveFavorite(ctx context.Context, listingID string) error {
	return m.Called(ctx, listingID).Error(0)
}

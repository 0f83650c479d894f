package mocks

import (
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type EventPublisher struct{ mock.Mock }

func (m *EventPublisher) Publish(ctx context.Context, event domain.CRMEvent) error {
	return m.Called(ctx, event).Error(0)
}

type ConversionJournal struct{ mock.Mock }

func (m *ConversionJournal) Begin(ctx context.Context, leadID, stageID int64) (domain.ConversionRecord, error) {
	args := m.Called(ctx, leadID, stageID)
	return args.Get(0).(domain.ConversionRecord), args.Error(1)
}

func (m *ConversionJournal) MarkDealCreated(ctx context.Context, id uuid.UUID, dealID int64) error {
	return m.Called(ctx, id, dealID).Error(0)
}

func (m *ConversionJournal) Finish(ctx context.Context, id uuid.UUID, state domain.ConversionState, lastErr error) error {
	return m.Called(ctx, id, state, lastErr).Error(0)
}

func (m *ConversionJournal) FindPending(ctx context.Context) ([]domain.ConversionRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]domain.ConversionRecord)
	return records, args.Error(1)
}

type ListingCache struct{ mock.Mock }

func (m *ListingCache) GetSearch(ctx context.Context, keyword string, page, limit int) (domain.ListingPage, bool, error) {
	args := m.Called(ctx, keyword, page, limit)
	return args.Get(0).(domain.ListingPage), args.Bool(1), args.Error(2)
}

func (m *ListingCache) SetSearch(ctx context.Context, keyword string, page, limit int, result domain.ListingPage) error {
	return m.Called(ctx, keyword, page, limit, result).Error(0)
}

func (m *ListingCache) GetListing(ctx context.Context, listingID string) (domain.Listing, bool, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(domain.Listing), args.Bool(1), args.Error(2)
}

func (m *ListingCache) SetListing(ctx context.Context, listing domain.Listing) error {
	return m.Called(ctx, listing).Error(0)
}

func (m *ListingCache) InvalidateListing(ctx context.Context, listingID string) error {
	return m.Called(ctx, listingID).Error(0)
}

// RecordingNotifier запоминает все события доски.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []port.BoardEvent
}

func (n *RecordingNotifier) Notify(_ context.Context, event port.BoardEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

// Types возвращает типы полученных событий по порядку.
func (n *RecordingNotifier) Types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

// Last возвращает последнее событие.
func (n *RecordingNotifier) Last() (port.BoardEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return port.BoardEvent{}, false
	}
	return n.events[len(n.events)-1], true
}

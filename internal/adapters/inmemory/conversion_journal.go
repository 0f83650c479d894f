// Package inmemory - реализации портов в памяти процесса для запуска без внешней инфраструктуры.
package inmemory

import (
	"brokerage-backoffice/internal/core/domain"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConversionJournal хранит журнал конвертаций в памяти. После рестарта журнал пуст.
type ConversionJournal struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.ConversionRecord
	now     func() time.Time
}

func NewConversionJournal() *ConversionJournal {
	return &ConversionJournal{
		records: make(map[uuid.UUID]domain.ConversionRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (j *ConversionJournal) Begin(_ context.Context, leadID, stageID int64) (domain.ConversionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	rec := domain.ConversionRecord{
		ID:        uuid.New(),
		LeadID:    leadID,
		StageID:   stageID,
		State:     domain.ConversionStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	j.records[rec.ID] = rec
	return rec, nil
}

func (j *ConversionJournal) MarkDealCreated(_ context.Context, id uuid.UUID, dealID int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.DealID = &dealID
	rec.State = domain.ConversionDealCreated
	rec.UpdatedAt = j.now()
	j.records[id] = rec
	return nil
}

func (j *ConversionJournal) Finish(_ context.Context, id uuid.UUID, state domain.ConversionState, lastErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	rec.State = state
	rec.LastError = ""
	if lastErr != nil {
		rec.LastError = lastErr.Error()
	}
	rec.UpdatedAt = j.now()
	j.records[id] = rec
	return nil
}

// FindPending возвращает незавершенные записи от старых к новым.
func (j *ConversionJournal) FindPending(_ context.Context) ([]domain.ConversionRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.ConversionRecord
	for _, rec := range j.records {
		if rec.State == domain.ConversionStarted || rec.State == domain.ConversionDealCreated {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

// Get возвращает запись по ID.
func (j *ConversionJournal) Get(id uuid.UUID) (domain.ConversionRecord, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.records[id]
	return rec, ok
}

// All возвращает все записи.
func (j *ConversionJournal) All() []domain.ConversionRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.ConversionRecord, 0, len(j.records))
	for _, rec := range j.records {
		out = append(out, rec)
	}
	return out
}

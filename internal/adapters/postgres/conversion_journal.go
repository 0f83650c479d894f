package postgres

import (
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/port"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const createJournalTable = `
	CREATE TABLE IF NOT EXISTS lead_conversions (
		id          UUID PRIMARY KEY,
		lead_id     BIGINT      NOT NULL,
		stage_id    BIGINT      NOT NULL,
		deal_id     BIGINT,
		state       TEXT        NOT NULL,
		last_error  TEXT        NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS lead_conversions_pending_idx
		ON lead_conversions (created_at) WHERE state IN ('started', 'deal_created');
`

// DB - часть pgxpool.Pool, которую использует журнал.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConversionJournal хранит журнал конвертаций лидов в PostgreSQL, чтобы прерванные
// конвертации переживали рестарт сервиса.
type ConversionJournal struct {
	db DB
}

var _ port.ConversionJournalPort = (*ConversionJournal)(nil)

func NewConversionJournal(db DB) (*ConversionJournal, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &ConversionJournal{db: db}, nil
}

// EnsureSchema создает таблицу журнала, если ее еще нет.
func (j *ConversionJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, createJournalTable); err != nil {
		return fmt.Errorf("failed to create lead_conversions table: %w", err)
	}
	return nil
}

func (j *ConversionJournal) Begin(ctx context.Context, leadID, stageID int64) (domain.ConversionRecord, error) {
	query := `
		INSERT INTO lead_conversions (id, lead_id, stage_id, state)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	rec := domain.ConversionRecord{
		ID:      uuid.New(),
		LeadID:  leadID,
		StageID: stageID,
		State:   domain.ConversionStarted,
	}
	err := j.db.QueryRow(ctx, query, rec.ID, leadID, stageID, string(rec.State)).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.ConversionRecord{}, fmt.Errorf("failed to insert conversion record: %w", err)
	}
	return rec, nil
}

func (j *ConversionJournal) MarkDealCreated(ctx context.Context, id uuid.UUID, dealID int64) error {
	query := `
		UPDATE lead_conversions
		SET deal_id = $2, state = $3, updated_at = now()
		WHERE id = $1`

	tag, err := j.db.Exec(ctx, query, id, dealID, string(domain.ConversionDealCreated))
	if err != nil {
		return fmt.Errorf("failed to record created deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (j *ConversionJournal) Finish(ctx context.Context, id uuid.UUID, state domain.ConversionState, lastErr error) error {
	query := `
		UPDATE lead_conversions
		SET state = $2, last_error = $3, updated_at = now()
		WHERE id = $1`

	message := ""
	if lastErr != nil {
		message = lastErr.Error()
	}
	tag, err := j.db.Exec(ctx, query, id, string(state), message)
	if err != nil {
		return fmt.Errorf("failed to finish conversion record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindPending возвращает незавершенные записи от старых к новым.
func (j *ConversionJournal) FindPending(ctx context.Context) ([]domain.ConversionRecord, error) {
	query := `
		SELECT id, lead_id, stage_id, deal_id, state, last_error, created_at, updated_at
		FROM lead_conversions
		WHERE state IN ($1, $2)
		ORDER BY created_at ASC`

	rows, err := j.db.Query(ctx, query, string(domain.ConversionStarted), string(domain.ConversionDealCreated))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending conversions: %w", err)
	}
	defer rows.Close()

	var out []domain.ConversionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get возвращает запись по ID.
func (j *ConversionJournal) Get(ctx context.Context, id uuid.UUID) (domain.ConversionRecord, error) {
	query := `
		SELECT id, lead_id, stage_id, deal_id, state, last_error, created_at, updated_at
		FROM lead_conversions
		WHERE id = $1`

	rec, err := scanRecord(j.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ConversionRecord{}, domain.ErrNotFound
	}
	return rec, err
}

func scanRecord(row pgx.Row) (domain.ConversionRecord, error) {
	var (
		rec   domain.ConversionRecord
		state string
	)
	err := row.Scan(&rec.ID, &rec.LeadID, &rec.StageID, &rec.DealID, &state, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversionRecord{}, err
		}
		return domain.ConversionRecord{}, fmt.Errorf("failed to scan conversion record: %w", err)
	}
	rec.State = domain.ConversionState(state)
	return rec, nil
}

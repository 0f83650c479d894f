package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"brokerage-backoffice/internal/adapters/postgres"
	"brokerage-backoffice/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB записывает запросы и отдает заранее заданные ответы.
type fakeDB struct {
	execs    []execCall
	affected int64
	execErr  error
	row      pgx.Row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if f.affected == 0 {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return f.row
}

type timestampsRow struct{ at time.Time }

func (r timestampsRow) Scan(dest ...any) error {
	for _, d := range dest {
		*(d.(*time.Time)) = r.at
	}
	return nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestNewConversionJournal_RequiresDB(t *testing.T) {
	t.Parallel()

	_, err := postgres.NewConversionJournal(nil)
	assert.Error(t, err)
}

func TestNewClient_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := postgres.NewClient(context.Background(), postgres.Config{})
	assert.ErrorIs(t, err, postgres.ErrDatabaseURLRequired)
}

func TestBegin_InsertsStartedRecord(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{row: timestampsRow{at: at}}
	journal, err := postgres.NewConversionJournal(db)
	require.NoError(t, err)

	rec, err := journal.Begin(context.Background(), 42, 5)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, domain.ConversionStarted, rec.State)
	assert.Equal(t, at, rec.CreatedAt)
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO lead_conversions")
	assert.Equal(t, []any{rec.ID, int64(42), int64(5), "started"}, db.execs[0].args)
}

func TestMarkDealCreated_UnknownRecord(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	journal, _ := postgres.NewConversionJournal(db)

	err := journal.MarkDealCreated(context.Background(), uuid.New(), 900)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFinish_StoresLastError(t *testing.T) {
	t.Parallel()

	db := &fakeDB{affected: 1}
	journal, _ := postgres.NewConversionJournal(db)
	id := uuid.New()

	require.NoError(t, journal.Finish(context.Background(), id, domain.ConversionCompensated, errors.New("lead api down")))
	require.Len(t, db.execs, 1)
	assert.Equal(t, []any{id, "compensated", "lead api down"}, db.execs[0].args)

	require.NoError(t, journal.Finish(context.Background(), id, domain.ConversionCompleted, nil))
	assert.Equal(t, []any{id, "completed", ""}, db.execs[1].args)
}

func TestGet_NoRowsIsNotFound(t *testing.T) {
	t.Parallel()

	db := &fakeDB{row: errRow{err: pgx.ErrNoRows}}
	journal, _ := postgres.NewConversionJournal(db)

	_, err := journal.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnsureSchema_PropagatesError(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execErr: errors.New("permission denied")}
	journal, _ := postgres.NewConversionJournal(db)

	err := journal.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/rpattn/roster/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSpec(t *testing.T, kind domain.EntityKind) domain.FieldSpec {
	t.Helper()
	spec, err := domain.SpecFor(kind)
	require.NoError(t, err)
	return spec
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestRecordRepositoryList(t *testing.T) {
	mock := newMock(t)
	repo := NewRecordRepository(mock)
	spec := mustSpec(t, domain.KindParticipants)

	id := uuid.New()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, properties, created_at, updated_at FROM "participants" ORDER BY created_at ASC, id`)).
		WillReturnRows(pgxmock.NewRows(recordColumns).
			AddRow(id, []byte(`{"yatri_id":"YT1","age":31,"date_of_birth":"1993-02-01","email":null}`), created, created))

	records, err := repo.List(context.Background(), spec, ListOptions{Order: SortOldestFirst})
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, id, record.ID)
	assert.Equal(t, domain.KindParticipants, record.Kind)
	assert.Equal(t, "YT1", record.Fields.Text("yatri_id"))
	assert.Equal(t, 31.0, record.Fields["age"].Num())
	assert.Equal(t, domain.ValueDate, record.Fields["date_of_birth"].Kind())
	assert.True(t, record.Fields["email"].IsNull())
}

func TestRecordRepositoryListMissingTable(t *testing.T) {
	mock := newMock(t)
	repo := NewRecordRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "submissions" ORDER BY created_at DESC, id LIMIT 5`)).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UndefinedTable, Message: `relation "submissions" does not exist`})

	_, err := repo.List(context.Background(), mustSpec(t, domain.KindSubmissions), ListOptions{Limit: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollectionMissing))
}

func TestRecordRepositoryGetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewRecordRepository(mock)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "participants" WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(recordColumns))

	_, err := repo.GetByID(context.Background(), mustSpec(t, domain.KindParticipants), id)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecordRepositoryFindByKey(t *testing.T) {
	mock := newMock(t)
	repo := NewRecordRepository(mock)
	spec := mustSpec(t, domain.KindSubmissions)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "submissions" WHERE "application_id" = $1 ORDER BY created_at ASC LIMIT 1`)).
		WithArgs("APP-1").
		WillReturnRows(pgxmock.NewRows(recordColumns).AddRow(id, []byte(`{"application_id":"APP-1"}`), now, now))

	record, err := repo.FindByKey(context.Background(), spec, "application_id", "APP-1")
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)

	_, err = repo.FindByKey(context.Background(), spec, "name", "x")
	assert.Error(t, err, "only identifier columns are indexed")
}

func TestRecordRepositoryInsertMany(t *testing.T) {
	mock := newMock(t)
	repo := NewRecordRepository(mock)
	spec := mustSpec(t, domain.KindParticipants)

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.Record{
		domain.NewRecord(spec.Kind, domain.Fields{"yatri_id": domain.String("YT1")}, created),
		domain.NewRecord(spec.Kind, domain.Fields{"yatri_id": domain.String("YT2")}, created),
	}
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "participants" (properties,created_at) VALUES ($1,$2),($3,$4) RETURNING id, updated_at`)).
		WithArgs([]byte(`{"yatri_id":"YT1"}`), created, []byte(`{"yatri_id":"YT2"}`), created).
		WillReturnRows(pgxmock.NewRows([]string{"id", "updated_at"}).
			AddRow(ids[0], created).
			AddRow(ids[1], created))

	saved, err := repo.InsertMany(context.Background(), spec, records)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, ids[0], saved[0].ID)
	assert.Equal(t, "YT2", saved[1].Fields.Text("yatri_id"))
}

func TestRecordRepositoryInsertManyUniqueViolation(t *testing.T) {
	mock := newMock(t)
	repo := NewRecordRepository(mock)
	spec := mustSpec(t, domain.KindParticipants)

	mock.ExpectQuery(`INSERT INTO "participants"`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key value violates unique constraint"})

	_, err := repo.InsertMany(context.Background(), spec, []domain.Record{
		domain.NewRecord(spec.Kind, domain.Fields{"yatri_id": domain.String("YT1")}, time.Now()),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key value")
}

func TestRecordRepositoryExistingKeys(t *testing.T) {
	mock := newMock(t)
	repo := NewRecordRepository(mock)
	spec := mustSpec(t, domain.KindSubmissions)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "submission_id" FROM "submissions" WHERE "submission_id" IS NOT NULL`)).
		WillReturnRows(pgxmock.NewRows([]string{"submission_id"}).AddRow("S1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "application_id" FROM "submissions" WHERE "application_id" IS NOT NULL`)).
		WillReturnRows(pgxmock.NewRows([]string{"application_id"}).AddRow("A1").AddRow("S1"))

	keys, err := repo.ExistingKeys(context.Background(), spec, []string{"submission_id", "application_id"})
	require.NoError(t, err)
	assert.Equal(t, 2, keys.Size())
	assert.True(t, keys.Contains("A1"))
}

func TestRecordRepositoryExistingKeysMissingTable(t *testing.T) {
	mock := newMock(t)
	repo := NewRecordRepository(mock)

	mock.ExpectQuery(`SELECT "yatri_id" FROM "participants"`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UndefinedTable})

	_, err := repo.ExistingKeys(context.Background(), mustSpec(t, domain.KindParticipants), []string{"yatri_id"})
	assert.True(t, errors.Is(err, ErrCollectionMissing))
}

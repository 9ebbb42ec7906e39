package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rpattn/roster/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participant(key string, created time.Time) domain.Record {
	return domain.NewRecord(domain.KindParticipants, domain.Fields{"yatri_id": domain.String(key)}, created)
}

func TestMemoryInsertManyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	spec := mustSpec(t, domain.KindParticipants)
	now := time.Now()

	_, err := repo.InsertMany(ctx, spec, []domain.Record{participant("YT1", now)})
	require.NoError(t, err)

	_, err = repo.InsertMany(ctx, spec, []domain.Record{participant("YT2", now), participant("YT1", now)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key value")

	_, err = repo.InsertMany(ctx, spec, []domain.Record{participant("YT3", now), participant("YT3", now)})
	require.Error(t, err, "conflicts inside one batch are rejected too")

	all, err := repo.List(ctx, spec, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 1, "failed batches leave no partial rows")
}

func TestMemoryListOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	spec := mustSpec(t, domain.KindParticipants)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.InsertMany(ctx, spec, []domain.Record{
		participant("A", base),
		participant("B", base.Add(time.Minute)),
		participant("C", base.Add(time.Minute)),
	})
	require.NoError(t, err)

	desc, err := repo.List(ctx, spec, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, keysOf(desc))

	asc, err := repo.List(ctx, spec, ListOptions{Order: SortOldestFirst, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, keysOf(asc))
}

func TestMemoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	spec := mustSpec(t, domain.KindParticipants)

	saved, err := repo.InsertMany(ctx, spec, []domain.Record{participant("YT1", time.Now())})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, saved[0].ID)
	assert.False(t, saved[0].UpdatedAt.IsZero())

	got, err := repo.GetByID(ctx, spec, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "YT1", got.Fields.Text("yatri_id"))

	got, err = repo.FindByKey(ctx, spec, "yatri_id", "YT1")
	require.NoError(t, err)
	assert.Equal(t, saved[0].ID, got.ID)

	_, err = repo.GetByID(ctx, spec, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = repo.FindByKey(ctx, mustSpec(t, domain.KindSubmissions), "yatri_id", "YT1")
	assert.True(t, errors.Is(err, ErrNotFound), "kinds are isolated")
}

func TestMemoryReturnsDetachedRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	spec := mustSpec(t, domain.KindParticipants)

	saved, err := repo.InsertMany(ctx, spec, []domain.Record{participant("YT1", time.Now())})
	require.NoError(t, err)
	saved[0].Fields["first_name"] = domain.String("changed")

	got, err := repo.GetByID(ctx, spec, saved[0].ID)
	require.NoError(t, err)
	assert.NotContains(t, got.Fields, "first_name")
	got.Fields["yatri_id"] = domain.String("YT9")

	byKey, err := repo.FindByKey(ctx, spec, "yatri_id", "YT1")
	require.NoError(t, err)
	assert.Equal(t, "YT1", byKey.Fields.Text("yatri_id"))
	delete(byKey.Fields, "yatri_id")

	all, err := repo.List(ctx, spec, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "YT1", all[0].Fields.Text("yatri_id"))
	all[0].Fields["yatri_id"] = domain.String("YT8")

	again, err := repo.GetByID(ctx, spec, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "YT1", again.Fields.Text("yatri_id"))
}

func TestMemoryExistingKeysUnionsFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRecordRepository()
	spec := mustSpec(t, domain.KindSubmissions)

	_, err := repo.InsertMany(ctx, spec, []domain.Record{
		domain.NewRecord(spec.Kind, domain.Fields{"submission_id": domain.String("S1")}, time.Now()),
		domain.NewRecord(spec.Kind, domain.Fields{"application_id": domain.String("A1"), "yatri_id": domain.String("Y1")}, time.Now()),
	})
	require.NoError(t, err)

	keys, err := repo.ExistingKeys(ctx, spec, spec.Identifiers)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S1", "A1", "Y1"}, keys.Slice())

	empty, err := repo.ExistingKeys(ctx, mustSpec(t, domain.KindParticipants), []string{"yatri_id"})
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestMemoryIngestionLogNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryIngestionLogRepository()

	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		require.NoError(t, repo.Record(ctx, domain.IngestionRun{Kind: domain.KindParticipants, FileName: name}))
	}
	require.NoError(t, repo.Record(ctx, domain.IngestionRun{Kind: domain.KindSubmissions, FileName: "other.csv"}))

	runs, err := repo.List(ctx, domain.KindParticipants, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.csv", runs[0].FileName)
	assert.Equal(t, "b.csv", runs[1].FileName)
	assert.NotEqual(t, uuid.Nil, runs[0].ID)
}

func keysOf(records []domain.Record) []string {
	keys := make([]string, len(records))
	for i, record := range records {
		keys[i] = record.Fields.Text("yatri_id")
	}
	return keys
}

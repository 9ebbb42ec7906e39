package repository

import (
	"context"

	"github.com/rpattn/roster/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-set/v2"
)

var (
	// ErrNotFound is returned when no record matches a lookup.
	ErrNotFound = errors.New("record not found")
	// ErrCollectionMissing is returned when the backing table for a kind does not exist yet.
	ErrCollectionMissing = errors.New("collection does not exist")
)

// SortOrder orders list results by creation time.
type SortOrder string

const (
	SortNewestFirst SortOrder = "desc"
	SortOldestFirst SortOrder = "asc"
)

// ListOptions narrows a List call.
type ListOptions struct {
	Order SortOrder
	Limit int // 0 means unbounded
}

// RecordRepository is the storage abstraction for ingested records. Every method takes the
// kind's FieldSpec so one implementation serves all entity kinds.
type RecordRepository interface {
	List(ctx context.Context, spec domain.FieldSpec, opts ListOptions) ([]domain.Record, error)
	GetByID(ctx context.Context, spec domain.FieldSpec, id uuid.UUID) (domain.Record, error)
	// FindByKey returns the first record whose identifier field equals value.
	FindByKey(ctx context.Context, spec domain.FieldSpec, field string, value string) (domain.Record, error)
	// InsertMany persists all records or none and returns them with store-assigned ids.
	InsertMany(ctx context.Context, spec domain.FieldSpec, records []domain.Record) ([]domain.Record, error)
	// ExistingKeys returns every stored value of the given identifier fields, unioned.
	ExistingKeys(ctx context.Context, spec domain.FieldSpec, fields []string) (*set.Set[string], error)
}

// IngestionLogRepository stores upload run summaries.
type IngestionLogRepository interface {
	Record(ctx context.Context, run domain.IngestionRun) error
	List(ctx context.Context, kind domain.EntityKind, limit int) ([]domain.IngestionRun, error)
}

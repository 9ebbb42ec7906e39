package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rpattn/roster/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-set/v2"
)

// memoryCollection keeps one kind's records in insertion order.
type memoryCollection struct {
	records []domain.Record
	byID    map[uuid.UUID]int
	// keys indexes identifier values per field, mirroring the unique indexes of the SQL store.
	keys map[string]map[string]int
}

// MemoryRecordRepository is the process-local store used when no database is configured.
// Data does not survive restarts.
type MemoryRecordRepository struct {
	mu          sync.RWMutex
	collections map[domain.EntityKind]*memoryCollection
	now         func() time.Time
}

// NewMemoryRecordRepository creates an empty in-memory store.
func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{
		collections: make(map[domain.EntityKind]*memoryCollection),
		now:         time.Now,
	}
}

func (r *MemoryRecordRepository) collection(kind domain.EntityKind) *memoryCollection {
	c, ok := r.collections[kind]
	if !ok {
		c = &memoryCollection{
			byID: make(map[uuid.UUID]int),
			keys: make(map[string]map[string]int),
		}
		r.collections[kind] = c
	}
	return c
}

func (r *MemoryRecordRepository) List(ctx context.Context, spec domain.FieldSpec, opts ListOptions) ([]domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[spec.Kind]
	if !ok {
		return []domain.Record{}, nil
	}

	out := make([]domain.Record, len(c.records))
	for i, record := range c.records {
		out[i] = detached(record)
	}
	if opts.Order != SortOldestFirst {
		// insertion order is creation order; reverse it, then keep ties stable by time
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *MemoryRecordRepository) GetByID(ctx context.Context, spec domain.FieldSpec, id uuid.UUID) (domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[spec.Kind]
	if !ok {
		return domain.Record{}, ErrNotFound
	}
	idx, ok := c.byID[id]
	if !ok {
		return domain.Record{}, ErrNotFound
	}
	return detached(c.records[idx]), nil
}

func (r *MemoryRecordRepository) FindByKey(ctx context.Context, spec domain.FieldSpec, field string, value string) (domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[spec.Kind]
	if !ok {
		return domain.Record{}, ErrNotFound
	}
	idx, ok := c.keys[field][value]
	if !ok {
		return domain.Record{}, ErrNotFound
	}
	return detached(c.records[idx]), nil
}

func (r *MemoryRecordRepository) InsertMany(ctx context.Context, spec domain.FieldSpec, records []domain.Record) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.collection(spec.Kind)

	// check the whole batch first so a conflict leaves the collection untouched
	pending := make(map[string]map[string]struct{}, len(spec.Identifiers))
	for _, record := range records {
		for _, field := range spec.Identifiers {
			value := record.Fields.Text(field)
			if value == "" {
				continue
			}
			if _, taken := c.keys[field][value]; taken {
				return nil, errors.Newf("duplicate key value violates unique constraint on %s (%s)", field, value)
			}
			if _, taken := pending[field][value]; taken {
				return nil, errors.Newf("duplicate key value violates unique constraint on %s (%s)", field, value)
			}
			if pending[field] == nil {
				pending[field] = make(map[string]struct{})
			}
			pending[field][value] = struct{}{}
		}
	}

	now := r.now()
	saved := make([]domain.Record, 0, len(records))
	for _, record := range records {
		stored := record.WithID(uuid.New(), now)
		stored.Kind = spec.Kind
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		idx := len(c.records)
		c.records = append(c.records, stored)
		c.byID[stored.ID] = idx
		for _, field := range spec.Identifiers {
			value := stored.Fields.Text(field)
			if value == "" {
				continue
			}
			if c.keys[field] == nil {
				c.keys[field] = make(map[string]int)
			}
			c.keys[field][value] = idx
		}
		saved = append(saved, detached(stored))
	}
	return saved, nil
}

func (r *MemoryRecordRepository) ExistingKeys(ctx context.Context, spec domain.FieldSpec, fields []string) (*set.Set[string], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := set.New[string](0)
	c, ok := r.collections[spec.Kind]
	if !ok {
		return keys, nil
	}
	for _, field := range fields {
		for value := range c.keys[field] {
			keys.Insert(value)
		}
	}
	return keys, nil
}

// detached copies a stored record so callers never share its Fields map.
func detached(record domain.Record) domain.Record {
	return record.WithID(record.ID, record.UpdatedAt)
}

var _ RecordRepository = (*MemoryRecordRepository)(nil)

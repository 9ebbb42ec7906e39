package repository

import (
	"context"
	"sync"

	"github.com/rpattn/roster/internal/domain"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ingestionLogRepository struct {
	db DBTX
}

// NewIngestionLogRepository wires a run log backed by Postgres.
func NewIngestionLogRepository(db DBTX) IngestionLogRepository {
	return &ingestionLogRepository{db: db}
}

func (r *ingestionLogRepository) Record(ctx context.Context, run domain.IngestionRun) error {
	if r.db == nil {
		return errors.New("ingestion log repository not initialized")
	}

	details := run.ErrorDetails
	if details == nil {
		details = []string{}
	}

	_, err := r.db.Exec(
		ctx,
		`INSERT INTO ingestion_runs (kind, file_name, total_rows, inserted, duplicates, errors, error_details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(run.Kind),
		run.FileName,
		run.TotalRows,
		run.Inserted,
		run.Duplicates,
		run.Errors,
		details,
		run.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to record ingestion run")
	}

	return nil
}

func (r *ingestionLogRepository) List(ctx context.Context, kind domain.EntityKind, limit int) ([]domain.IngestionRun, error) {
	if r.db == nil {
		return nil, errors.New("ingestion log repository not initialized")
	}

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, kind, file_name, total_rows, inserted, duplicates, errors, error_details, created_at
		 FROM ingestion_runs
		 WHERE kind = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		string(kind),
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ingestion runs")
	}
	defer rows.Close()

	runs := []domain.IngestionRun{}
	for rows.Next() {
		var (
			run       domain.IngestionRun
			kindText  string
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&run.ID,
			&kindText,
			&run.FileName,
			&run.TotalRows,
			&run.Inserted,
			&run.Duplicates,
			&run.Errors,
			&run.ErrorDetails,
			&createdAt,
		); scanErr != nil {
			return nil, errors.Wrap(scanErr, "failed to scan ingestion run")
		}

		run.Kind = domain.EntityKind(kindText)
		if createdAt.Valid {
			run.CreatedAt = createdAt.Time
		}

		runs = append(runs, run)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, errors.Wrap(rowsErr, "failed to iterate ingestion runs")
	}

	return runs, nil
}

// MemoryIngestionLogRepository keeps run summaries in process memory.
type MemoryIngestionLogRepository struct {
	mu   sync.RWMutex
	runs []domain.IngestionRun
}

func NewMemoryIngestionLogRepository() *MemoryIngestionLogRepository {
	return &MemoryIngestionLogRepository{}
}

func (r *MemoryIngestionLogRepository) Record(ctx context.Context, run domain.IngestionRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *MemoryIngestionLogRepository) List(ctx context.Context, kind domain.EntityKind, limit int) ([]domain.IngestionRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	runs := []domain.IngestionRun{}
	for i := len(r.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		if r.runs[i].Kind == kind {
			runs = append(runs, r.runs[i])
		}
	}
	return runs, nil
}

var (
	_ IngestionLogRepository = (*ingestionLogRepository)(nil)
	_ IngestionLogRepository = (*MemoryIngestionLogRepository)(nil)
)

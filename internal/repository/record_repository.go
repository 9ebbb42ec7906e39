package repository

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-set/v2"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/roster/internal/domain"
)

// DBTX is the subset of pgxpool.Pool used by the repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var recordColumns = []string{"id", "properties", "created_at", "updated_at"}

// recordRepository stores every entity kind in its own table: normalized fields live in a
// JSONB properties column and identifier fields are generated columns with unique indexes.
type recordRepository struct {
	db      DBTX
	builder sq.StatementBuilderType
}

// NewRecordRepository creates a Postgres-backed record repository.
func NewRecordRepository(db DBTX) RecordRepository {
	return &recordRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func tableName(spec domain.FieldSpec) string {
	return pgx.Identifier{spec.Table}.Sanitize()
}

// classifyError marks Postgres "relation does not exist" failures as ErrCollectionMissing.
func classifyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return errors.Mark(err, ErrCollectionMissing)
	}
	return err
}

func (r *recordRepository) List(ctx context.Context, spec domain.FieldSpec, opts ListOptions) ([]domain.Record, error) {
	order := "created_at DESC"
	if opts.Order == SortOldestFirst {
		order = "created_at ASC"
	}
	query := r.builder.Select(recordColumns...).From(tableName(spec)).OrderBy(order, "id")
	if opts.Limit > 0 {
		query = query.Limit(uint64(opts.Limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build list query")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(classifyError(err), "failed to list %s", spec.Plural)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		record, err := scanRecord(spec, rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(classifyError(err), "failed to iterate %s", spec.Plural)
	}
	return records, nil
}

func (r *recordRepository) GetByID(ctx context.Context, spec domain.FieldSpec, id uuid.UUID) (domain.Record, error) {
	sql, args, err := r.builder.Select(recordColumns...).
		From(tableName(spec)).
		Where("id = ?", id). // sq.Eq would expand the [16]byte uuid into an IN list
		ToSql()
	if err != nil {
		return domain.Record{}, errors.Wrap(err, "failed to build get query")
	}
	return r.getOne(ctx, spec, sql, args)
}

func (r *recordRepository) FindByKey(ctx context.Context, spec domain.FieldSpec, field string, value string) (domain.Record, error) {
	if !spec.IsIdentifier(field) {
		return domain.Record{}, errors.Newf("%s is not an identifier field of %s", field, spec.Kind)
	}
	sql, args, err := r.builder.Select(recordColumns...).
		From(tableName(spec)).
		Where(sq.Eq{pgx.Identifier{field}.Sanitize(): value}).
		OrderBy("created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Record{}, errors.Wrap(err, "failed to build key query")
	}
	return r.getOne(ctx, spec, sql, args)
}

func (r *recordRepository) getOne(ctx context.Context, spec domain.FieldSpec, sql string, args []any) (domain.Record, error) {
	record, err := scanRecord(spec, r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Record{}, ErrNotFound
		}
		return domain.Record{}, classifyError(err)
	}
	return record, nil
}

func (r *recordRepository) InsertMany(ctx context.Context, spec domain.FieldSpec, records []domain.Record) ([]domain.Record, error) {
	if len(records) == 0 {
		return []domain.Record{}, nil
	}

	// a single multi-row INSERT is atomic: the whole chunk lands or none of it does
	query := r.builder.Insert(tableName(spec)).
		Columns("properties", "created_at").
		Suffix("RETURNING id, updated_at")
	for _, record := range records {
		props, err := record.PropertiesJSON()
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal properties")
		}
		query = query.Values(props, record.CreatedAt)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build insert query")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	saved := make([]domain.Record, 0, len(records))
	for rows.Next() {
		var (
			id        uuid.UUID
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan inserted id")
		}
		if len(saved) >= len(records) {
			return nil, errors.New("insert returned more rows than submitted")
		}
		stored := records[len(saved)].WithID(id, updatedAt)
		stored.Kind = spec.Kind
		saved = append(saved, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}
	if len(saved) != len(records) {
		return nil, errors.Newf("insert returned %d rows for %d records", len(saved), len(records))
	}
	return saved, nil
}

func (r *recordRepository) ExistingKeys(ctx context.Context, spec domain.FieldSpec, fields []string) (*set.Set[string], error) {
	keys := set.New[string](0)
	for _, field := range fields {
		if !spec.IsIdentifier(field) {
			return nil, errors.Newf("%s is not an identifier field of %s", field, spec.Kind)
		}
		column := pgx.Identifier{field}.Sanitize()
		sql, args, err := r.builder.Select(column).
			From(tableName(spec)).
			Where(sq.NotEq{column: nil}).
			ToSql()
		if err != nil {
			return nil, errors.Wrap(err, "failed to build key query")
		}

		if err := r.collectKeys(ctx, keys, sql, args); err != nil {
			return nil, errors.Wrapf(err, "failed to fetch existing %s values", field)
		}
	}
	return keys, nil
}

func (r *recordRepository) collectKeys(ctx context.Context, keys *set.Set[string], sql string, args []any) error {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return classifyError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return err
		}
		keys.Insert(key)
	}
	return classifyError(rows.Err())
}

func scanRecord(spec domain.FieldSpec, row pgx.Row) (domain.Record, error) {
	var (
		id        uuid.UUID
		props     []byte
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &props, &createdAt, &updatedAt); err != nil {
		return domain.Record{}, err
	}

	decoded := map[string]any{}
	if len(props) > 0 {
		if err := json.Unmarshal(props, &decoded); err != nil {
			return domain.Record{}, errors.Wrapf(err, "failed to decode properties for %s", id)
		}
	}

	return domain.Record{
		ID:        id,
		Kind:      spec.Kind,
		Fields:    spec.DecodeProperties(decoded),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

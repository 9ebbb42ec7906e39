package ingestion

import (
	"context"
	"io"
	"time"

	"github.com/rpattn/roster/internal/domain"
	"github.com/rpattn/roster/internal/metrics"
	"github.com/rpattn/roster/internal/repository"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultChunkSize       = 30
	DefaultMaxErrorDetails = 10
)

// Service runs CSV uploads through the ingestion pipeline for every entity kind.
type Service struct {
	records         repository.RecordRepository
	runs            repository.IngestionLogRepository
	logger          *logrus.Logger
	metrics         *metrics.Registry
	chunkSize       int
	maxErrorDetails int
	now             func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithChunkSize overrides the insert chunk size. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithMaxErrorDetails bounds the error messages echoed to callers.
func WithMaxErrorDetails(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxErrorDetails = limit
		}
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Service) { s.metrics = registry }
}

// WithClock replaces the clock used to stamp created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new ingestion service. runs may be nil to disable upload history.
func NewService(records repository.RecordRepository, runs repository.IngestionLogRepository, opts ...Option) *Service {
	s := &Service{
		records:         records,
		runs:            runs,
		logger:          logrus.StandardLogger(),
		chunkSize:       DefaultChunkSize,
		maxErrorDetails: DefaultMaxErrorDetails,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request describes the ingestion input.
type Request struct {
	Kind     domain.EntityKind
	FileName string
	Data     io.Reader
}

// MaxErrorDetails is the number of error messages callers should echo back.
func (s *Service) MaxErrorDetails() int {
	return s.maxErrorDetails
}

// Ingest maps, normalizes, validates, deduplicates and inserts every row of the upload.
// Row-level problems are reported in the result; an error is returned only when the
// kind is unknown or the header or stream cannot be read.
func (s *Service) Ingest(ctx context.Context, req Request) (domain.IngestionResult, error) {
	started := time.Now()

	spec, err := domain.SpecFor(req.Kind)
	if err != nil {
		return domain.IngestionResult{}, err
	}
	if req.Data == nil {
		return domain.IngestionResult{}, errors.New("data reader is required")
	}

	reader, err := newRowReader(req.Data)
	if err != nil {
		return domain.IngestionResult{}, err
	}

	var (
		state = runState{}
		valid []domain.Record
	)
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			state.total++
			state.invalid = append(state.invalid, rowErr.Error())
			continue
		}
		if err != nil {
			return domain.IngestionResult{}, err
		}

		state.total++
		record := normalize(spec, mapColumns(spec, row), s.now())
		if msg := validateRecord(spec, record, row.Number); msg != "" {
			state.invalid = append(state.invalid, msg)
			continue
		}
		valid = append(valid, record)
	}

	existing := s.existingKeys(ctx, spec)
	fresh, duplicates := resolveDuplicates(spec, valid, existing)
	state.duplicates = duplicates
	state.inserted, state.failures = s.insertChunks(ctx, spec, fresh)

	result := buildResult(spec, state)

	s.metrics.ObserveRun(string(spec.Kind), result.InsertedCount(), duplicates, len(state.invalid), len(state.failures), time.Since(started))
	s.logger.WithFields(logrus.Fields{
		"kind":       spec.Kind,
		"file":       req.FileName,
		"total":      result.TotalRows,
		"inserted":   result.InsertedCount(),
		"duplicates": result.DuplicateCount,
		"errors":     result.ErrorCount,
	}).Info("ingestion finished")

	s.recordRun(ctx, req, result)
	return result, nil
}

// Runs lists recent uploads for a kind, newest first.
func (s *Service) Runs(ctx context.Context, kind domain.EntityKind, limit int) ([]domain.IngestionRun, error) {
	if _, err := domain.SpecFor(kind); err != nil {
		return nil, err
	}
	if s.runs == nil {
		return []domain.IngestionRun{}, nil
	}
	return s.runs.List(ctx, kind, limit)
}

func (s *Service) recordRun(ctx context.Context, req Request, result domain.IngestionResult) {
	if s.runs == nil {
		return
	}
	run := domain.IngestionRun{
		Kind:         result.Kind,
		FileName:     req.FileName,
		TotalRows:    result.TotalRows,
		Inserted:     result.InsertedCount(),
		Duplicates:   result.DuplicateCount,
		Errors:       result.ErrorCount,
		ErrorDetails: result.ErrorDetails(s.maxErrorDetails),
		CreatedAt:    s.now(),
	}
	if err := s.runs.Record(ctx, run); err != nil {
		s.logger.WithFields(logrus.Fields{"kind": result.Kind, "error": err}).Warn("failed to record ingestion run")
	}
}

package ingestion

import (
	"context"
	"fmt"

	"github.com/rpattn/roster/internal/domain"

	"github.com/sirupsen/logrus"
)

// insertChunks persists records in sequential chunks. A failed chunk is retried one record
// at a time so a single bad row cannot discard its neighbours. Earlier chunks are never
// rolled back.
func (s *Service) insertChunks(ctx context.Context, spec domain.FieldSpec, records []domain.Record) ([]domain.Record, []string) {
	inserted := make([]domain.Record, 0, len(records))
	var failures []string

	for start := 0; start < len(records); start += s.chunkSize {
		end := min(start+s.chunkSize, len(records))
		chunk := records[start:end]

		saved, err := s.records.InsertMany(ctx, spec, chunk)
		if err == nil {
			inserted = append(inserted, saved...)
			continue
		}

		s.metrics.ChunkFallback(string(spec.Kind))
		s.logger.WithFields(logrus.Fields{
			"kind":  spec.Kind,
			"chunk": start / s.chunkSize,
			"size":  len(chunk),
			"error": err,
		}).Warn("chunk insert failed, retrying rows individually")

		for _, record := range chunk {
			single, rowErr := s.records.InsertMany(ctx, spec, []domain.Record{record})
			if rowErr != nil {
				field, value := recordKey(spec, record)
				failures = append(failures, fmt.Sprintf("Failed to insert %s=%s: %s", field, value, rowErr.Error()))
				continue
			}
			inserted = append(inserted, single...)
		}
	}
	return inserted, failures
}

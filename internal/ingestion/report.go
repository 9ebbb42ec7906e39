package ingestion

import (
	"fmt"

	"github.com/rpattn/roster/internal/domain"
)

// runState accumulates the outcome of each pipeline stage.
type runState struct {
	total      int
	invalid    []string
	duplicates int
	inserted   []domain.Record
	failures   []string
}

func buildResult(spec domain.FieldSpec, state runState) domain.IngestionResult {
	errs := make([]string, 0, len(state.invalid)+len(state.failures)+1)
	errs = append(errs, state.invalid...)
	if state.duplicates > 0 {
		errs = append(errs, fmt.Sprintf("Skipped %d duplicate %s (already exist)", state.duplicates, spec.Plural))
	}
	errs = append(errs, state.failures...)

	inserted := state.inserted
	if inserted == nil {
		inserted = []domain.Record{}
	}

	return domain.IngestionResult{
		Kind:           spec.Kind,
		TotalRows:      state.total,
		Inserted:       inserted,
		Errors:         errs,
		DuplicateCount: state.duplicates,
		ErrorCount:     len(state.invalid) + state.duplicates + len(state.failures),
	}
}

package ingestion

import (
	"context"
	"strings"

	"github.com/rpattn/roster/internal/domain"
	"github.com/rpattn/roster/internal/repository"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"github.com/sirupsen/logrus"
)

// existingKeys snapshots stored identifier values. Any fetch failure degrades to an empty
// set so the run continues; a missing collection is expected on a fresh store.
func (s *Service) existingKeys(ctx context.Context, spec domain.FieldSpec) *set.Set[string] {
	keys, err := s.records.ExistingKeys(ctx, spec, spec.Identifiers)
	if err == nil && keys != nil {
		return keys
	}

	entry := s.logger.WithFields(logrus.Fields{"kind": spec.Kind, "error": err})
	if errors.Is(err, repository.ErrCollectionMissing) {
		entry.Info("collection missing, treating every row as new")
	} else if err != nil {
		entry.Warn("failed to fetch existing keys, duplicate check skipped")
	}
	return set.New[string](0)
}

// resolveDuplicates drops records whose identifiers already exist in the store or appeared
// earlier in the same upload. Input order is preserved.
func resolveDuplicates(spec domain.FieldSpec, records []domain.Record, existing *set.Set[string]) ([]domain.Record, int) {
	seen := set.New[string](len(records))
	fresh := make([]domain.Record, 0, len(records))
	duplicates := 0

	for _, record := range records {
		keys := identifierValues(spec, record)
		duplicate := false
		for _, key := range keys {
			if existing.Contains(key) || seen.Contains(key) {
				duplicate = true
				break
			}
		}
		if duplicate {
			duplicates++
			continue
		}
		seen.InsertSlice(keys)
		fresh = append(fresh, record)
	}
	return fresh, duplicates
}

func identifierValues(spec domain.FieldSpec, record domain.Record) []string {
	values := make([]string, 0, len(spec.Identifiers))
	for _, name := range spec.Identifiers {
		if value := strings.TrimSpace(record.Fields.Text(name)); value != "" {
			values = append(values, value)
		}
	}
	return values
}

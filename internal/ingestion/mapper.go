package ingestion

import (
	"strings"

	"github.com/rpattn/roster/internal/domain"
)

// mapColumns resolves headers to canonical fields. Unknown headers and blank cells are
// dropped, and the first non-blank value wins when several headers share a field.
func mapColumns(spec domain.FieldSpec, row Row) map[string]string {
	mapped := make(map[string]string, len(row.Cells))
	for _, cell := range row.Cells {
		name, ok := spec.Canonical(cell.Header)
		if !ok {
			continue
		}
		value := strings.TrimSpace(cell.Value)
		if value == "" {
			continue
		}
		if _, seen := mapped[name]; seen {
			continue
		}
		mapped[name] = value
	}
	return mapped
}

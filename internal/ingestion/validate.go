package ingestion

import (
	"fmt"
	"strings"

	"github.com/rpattn/roster/internal/domain"
)

// validateRecord applies the identifier disjunction and the kind's required fields.
// An empty string means the record is valid.
func validateRecord(spec domain.FieldSpec, record domain.Record, rowNumber int) string {
	hasIdentifier := false
	for _, name := range spec.Identifiers {
		if strings.TrimSpace(record.Fields.Text(name)) != "" {
			hasIdentifier = true
			break
		}
	}
	if !hasIdentifier {
		return fmt.Sprintf("Row %d: Missing %s", rowNumber, identifierLabel(spec.Identifiers))
	}

	var missing []string
	for _, name := range spec.Required {
		if strings.TrimSpace(record.Fields.Text(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		field, value := recordKey(spec, record)
		return fmt.Sprintf("Row %d (%s=%s): Missing required field(s): %s", rowNumber, field, value, strings.Join(missing, ", "))
	}
	return ""
}

// recordKey returns the first populated identifier of a record.
func recordKey(spec domain.FieldSpec, record domain.Record) (string, string) {
	for _, name := range spec.Identifiers {
		if value := strings.TrimSpace(record.Fields.Text(name)); value != "" {
			return name, value
		}
	}
	return spec.Identifiers[0], ""
}

// identifierLabel renders "a", "a or b" or "a, b, or c".
func identifierLabel(names []string) string {
	switch len(names) {
	case 0:
		return "identifier"
	case 1:
		return names[0]
	case 2:
		return names[0] + " or " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
	}
}

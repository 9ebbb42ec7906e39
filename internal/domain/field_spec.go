package domain

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// FieldType is the normalization rule applied to a canonical field.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeEnum      FieldType = "enum"
	FieldTypeNumber    FieldType = "number"
	FieldTypeDate      FieldType = "date"
	FieldTypeTimestamp FieldType = "timestamp"
)

// FieldDefinition declares one canonical field and every header spelling that maps to it.
type FieldDefinition struct {
	Name    string
	Type    FieldType
	Aliases []string
}

// YearWindow bounds the accepted years of parsed dates. Zero value accepts everything.
type YearWindow struct {
	Min int
	Max int
}

// Contains reports whether year falls inside the window.
func (w YearWindow) Contains(year int) bool {
	if w.Min == 0 && w.Max == 0 {
		return true
	}
	return year >= w.Min && year <= w.Max
}

// FieldSpec is the static per-kind configuration driving the ingestion pipeline.
type FieldSpec struct {
	Kind     EntityKind
	Table    string
	Singular string // "Participant", used in not-found messages
	Plural   string // "participants", used in summaries
	ListKey  string // JSON key carrying inserted records in upload responses

	Fields []FieldDefinition
	// Identifiers lists the fields of which at least one must be non-empty. Their values
	// share one namespace for duplicate detection.
	Identifiers []string
	// Required lists additional fields that must be non-empty.
	Required []string
	Years    YearWindow

	aliases map[string]string
	byName  map[string]FieldDefinition
}

// NewFieldSpec indexes the alias table and checks that canonical names are unique, that
// each alias resolves to exactly one field and that identifier/required names are declared.
func NewFieldSpec(spec FieldSpec) (FieldSpec, error) {
	if spec.Kind == "" || spec.Table == "" {
		return FieldSpec{}, errors.New("field spec requires kind and table")
	}
	if len(spec.Identifiers) == 0 {
		return FieldSpec{}, errors.Newf("field spec %s declares no identifier fields", spec.Kind)
	}

	spec.aliases = make(map[string]string)
	spec.byName = make(map[string]FieldDefinition, len(spec.Fields))
	for _, field := range spec.Fields {
		if _, dup := spec.byName[field.Name]; dup {
			return FieldSpec{}, errors.Newf("field spec %s: duplicate canonical field %s", spec.Kind, field.Name)
		}
		switch field.Type {
		case FieldTypeString, FieldTypeEnum, FieldTypeNumber, FieldTypeDate, FieldTypeTimestamp:
		default:
			return FieldSpec{}, errors.Newf("field spec %s: field %s has unknown type %q", spec.Kind, field.Name, field.Type)
		}
		spec.byName[field.Name] = field

		for _, alias := range append([]string{field.Name}, field.Aliases...) {
			if owner, taken := spec.aliases[alias]; taken && owner != field.Name {
				return FieldSpec{}, errors.Newf("field spec %s: alias %q maps to both %s and %s", spec.Kind, alias, owner, field.Name)
			}
			spec.aliases[alias] = field.Name
		}
	}

	for _, name := range append(append([]string{}, spec.Identifiers...), spec.Required...) {
		if _, ok := spec.byName[name]; !ok {
			return FieldSpec{}, errors.Newf("field spec %s: required field %s is not declared", spec.Kind, name)
		}
	}

	return spec, nil
}

// MustFieldSpec is NewFieldSpec for package-level declarations.
func MustFieldSpec(spec FieldSpec) FieldSpec {
	built, err := NewFieldSpec(spec)
	if err != nil {
		panic(fmt.Sprintf("invalid field spec: %v", err))
	}
	return built
}

// Canonical resolves a header to its canonical field name.
func (s FieldSpec) Canonical(header string) (string, bool) {
	name, ok := s.aliases[header]
	return name, ok
}

// Field returns the definition of a canonical field.
func (s FieldSpec) Field(name string) (FieldDefinition, bool) {
	field, ok := s.byName[name]
	return field, ok
}

// FieldNames returns canonical field names in declaration order.
func (s FieldSpec) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, field := range s.Fields {
		names[i] = field.Name
	}
	return names
}

// IsIdentifier reports whether name participates in the identifier rule.
func (s FieldSpec) IsIdentifier(name string) bool {
	for _, id := range s.Identifiers {
		if id == name {
			return true
		}
	}
	return false
}

// DecodeProperties rebuilds typed values from a stored JSON object.
func (s FieldSpec) DecodeProperties(props map[string]any) Fields {
	fields := make(Fields, len(props))
	for name, raw := range props {
		def, declared := s.byName[name]
		switch typed := raw.(type) {
		case nil:
			fields[name] = Null()
		case float64:
			fields[name] = Number(typed)
		case string:
			switch {
			case declared && def.Type == FieldTypeDate:
				fields[name] = Value{kind: ValueDate, str: typed}
			case declared && def.Type == FieldTypeTimestamp:
				fields[name] = Value{kind: ValueTimestamp, str: typed}
			default:
				fields[name] = String(typed)
			}
		default:
			fields[name] = String(fmt.Sprint(typed))
		}
	}
	return fields
}

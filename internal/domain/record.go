package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Fields maps canonical field names to normalized values.
type Fields map[string]Value

// Properties converts the fields to a JSON-compatible map for storage.
func (f Fields) Properties() map[string]any {
	props := make(map[string]any, len(f))
	for name, value := range f {
		props[name] = value.Interface()
	}
	return props
}

// Text returns the string form of a field, or "" when absent or null.
func (f Fields) Text(name string) string {
	value, ok := f[name]
	if !ok || value.IsNull() {
		return ""
	}
	return value.Str()
}

// Record is one normalized row of an entity kind. ID and UpdatedAt are assigned by the store.
type Record struct {
	ID        uuid.UUID
	Kind      EntityKind
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates an unsaved record stamped with createdAt.
func NewRecord(kind EntityKind, fields Fields, createdAt time.Time) Record {
	return Record{
		Kind:      kind,
		Fields:    copyFields(fields),
		CreatedAt: createdAt,
	}
}

// WithID returns a copy carrying the store-assigned identity.
func (r Record) WithID(id uuid.UUID, updatedAt time.Time) Record {
	return Record{
		ID:        id,
		Kind:      r.Kind,
		Fields:    copyFields(r.Fields),
		CreatedAt: r.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

// PropertiesJSON serializes the normalized fields for a JSONB column.
func (r Record) PropertiesJSON() ([]byte, error) {
	return json.Marshal(r.Fields.Properties())
}

// MarshalJSON flattens fields next to the bookkeeping columns.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for name, value := range r.Fields {
		out[name] = value
	}
	if r.ID != uuid.Nil {
		out["id"] = r.ID
	}
	out["created_at"] = r.CreatedAt.UTC().Format(TimestampLayout)
	if !r.UpdatedAt.IsZero() {
		out["updated_at"] = r.UpdatedAt.UTC().Format(TimestampLayout)
	}
	return json.Marshal(out)
}

func copyFields(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

package domain

import (
	"encoding/json"
	"math"
	"time"
)

// ValueKind tags which variant a Value holds.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueString
	ValueNumber
	ValueDate
	ValueTimestamp
)

const (
	// DateLayout is the serialized form of calendar fields.
	DateLayout = "2006-01-02"
	// TimestampLayout mirrors the millisecond ISO-8601 form produced by browsers.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Value is a normalized field value: null, string, number, calendar date or timestamp.
// Dates and timestamps are kept in their serialized ISO form.
type Value struct {
	kind ValueKind
	str  string
	num  float64
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a plain string.
func String(s string) Value { return Value{kind: ValueString, str: s} }

// Number wraps a float. NaN and infinities collapse to zero.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return Value{kind: ValueNumber, num: f}
}

// Date wraps the calendar part of t.
func Date(t time.Time) Value {
	return Value{kind: ValueDate, str: t.Format(DateLayout)}
}

// Timestamp wraps t in UTC.
func Timestamp(t time.Time) Value {
	return Value{kind: ValueTimestamp, str: t.UTC().Format(TimestampLayout)}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == ValueNull }

// Str returns the textual form for string, date and timestamp values.
func (v Value) Str() string { return v.str }

func (v Value) Num() float64 { return v.num }

// Interface converts the value to its JSON-compatible Go form.
func (v Value) Interface() any {
	switch v.kind {
	case ValueString, ValueDate, ValueTimestamp:
		return v.str
	case ValueNumber:
		return v.num
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

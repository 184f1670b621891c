package domain

import "strconv"

// Record is a flat mapping from field name to a string or int64 value.
// An absent field means the value is unknown.
type Record map[string]any

// Set stores v under name. Only string and int64 values are kept.
func (r Record) Set(name string, v any) {
	switch val := v.(type) {
	case string:
		r[name] = val
	case int64:
		r[name] = val
	case int:
		r[name] = int64(val)
	}
}

func (r Record) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// String returns the field formatted as text and whether it was set.
func (r Record) String(name string) (string, bool) {
	switch v := r[name].(type) {
	case string:
		return v, true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

// Int returns the field as an int64 and whether it was set as a number.
func (r Record) Int(name string) (int64, bool) {
	v, ok := r[name].(int64)
	return v, ok
}

// RecordSet is the ordered, append-only output of one run.
type RecordSet[T any] struct {
	items []T
}

func NewRecordSet[T any]() *RecordSet[T] {
	return &RecordSet[T]{}
}

func (s *RecordSet[T]) Append(items ...T) {
	s.items = append(s.items, items...)
}

func (s *RecordSet[T]) Len() int {
	return len(s.items)
}

// Items returns a copy of the accumulated records in insertion order.
func (s *RecordSet[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Row is a record with a fixed, explicit column order, ready for a sink.
type Row interface {
	Header() []string
	Values() []string
}

// SentinelPolicy names what an unparsable value resolves to at a use site.
type SentinelPolicy int

const (
	// SentinelUnknown keeps "not reported" distinct from zero.
	SentinelUnknown SentinelPolicy = iota
	// SentinelZero resolves to 0 so downstream sums stay numeric.
	SentinelZero
)

func (p SentinelPolicy) String() string {
	if p == SentinelZero {
		return "zero"
	}
	return "unknown"
}

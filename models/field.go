package models

import (
	"encoding/json"
	"fmt"
)

// Field status values used in the JSON encoding of a Field.
const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
)

// Field is the outcome of one extraction heuristic: either Found with a
// value or NotFound. NotFound is a valid terminal state, not an error.
// The zero value is NotFound.
type Field[T any] struct {
	value T
	found bool
}

// Found wraps v as a found field.
func Found[T any](v T) Field[T] {
	return Field[T]{value: v, found: true}
}

// NotFound returns the empty field for T.
func NotFound[T any]() Field[T] {
	return Field[T]{}
}

// Get returns the value and whether it was found.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.found
}

// IsFound reports whether the field holds a value.
func (f Field[T]) IsFound() bool { return f.found }

// OrElse returns the value, or fallback when NotFound.
func (f Field[T]) OrElse(fallback T) T {
	if f.found {
		return f.value
	}
	return fallback
}

type fieldJSON[T any] struct {
	Status string `json:"status"`
	Value  *T     `json:"value,omitempty"`
}

// MarshalJSON encodes the field as {"status":"found","value":...} or
// {"status":"not_found"}.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.found {
		return json.Marshal(fieldJSON[T]{Status: StatusNotFound})
	}
	v := f.value
	return json.Marshal(fieldJSON[T]{Status: StatusFound, Value: &v})
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var raw fieldJSON[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Status {
	case StatusNotFound:
		*f = NotFound[T]()
	case StatusFound:
		if raw.Value == nil {
			return fmt.Errorf("field: status %q without value", raw.Status)
		}
		*f = Found(*raw.Value)
	default:
		return fmt.Errorf("field: unknown status %q", raw.Status)
	}
	return nil
}

func (f Field[T]) String() string {
	if !f.found {
		return "NotFound"
	}
	return fmt.Sprintf("Found(%v)", f.value)
}

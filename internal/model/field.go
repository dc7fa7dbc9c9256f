package model

import (
	"bytes"
	"encoding/json"
)

// Field is a patch value with three states: omitted (the zero value),
// explicitly null, or set to a value. Decoding from JSON leaves an absent
// key omitted and maps a literal null to the null state.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{present: true, value: v}
}

// Null returns a Field that explicitly clears the target.
func Null[T any]() Field[T] {
	return Field[T]{present: true, null: true}
}

// Present reports whether the field was supplied at all, null included.
func (f Field[T]) Present() bool {
	return f.present
}

// IsNull reports whether the field was supplied as an explicit null.
func (f Field[T]) IsNull() bool {
	return f.present && f.null
}

// Value returns the supplied value and true, or the zero value and false
// when the field is omitted or null.
func (f Field[T]) Value() (T, bool) {
	if !f.present || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

// Ptr returns nil for null, a pointer to the value otherwise.
// Callers must check Present first.
func (f Field[T]) Ptr() *T {
	if f.null || !f.present {
		return nil
	}
	v := f.value
	return &v
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked for keys
// present in the document.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}
	f.null = false
	return json.Unmarshal(data, &f.value)
}

// MarshalJSON implements json.Marshaler. Omitted and null fields both encode
// as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.present || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

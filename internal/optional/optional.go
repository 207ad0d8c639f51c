// Package optional provides a field type for partial updates.
//
// A JSON body can say three different things about a key:
//
//	{}                    → absent, leave the stored value alone
//	{"address": null}     → present and null, clear the stored value
//	{"address": "Main 1"} → present with a value, overwrite
//
// A plain pointer collapses the first two cases. Field keeps them apart so
// update code can ask "was this sent?" without re-parsing the payload.
package optional

import (
	"bytes"
	"encoding/json"
)

// Field is the zero value for "absent".
type Field[T any] struct {
	set   bool
	null  bool
	value T
}

// Of returns a present, non-null field.
func Of[T any](v T) Field[T] {
	return Field[T]{set: true, value: v}
}

// Null returns a present field holding null.
func Null[T any]() Field[T] {
	return Field[T]{set: true, null: true}
}

// Set reports whether the key appeared in the input at all.
func (f Field[T]) Set() bool { return f.set }

// IsNull reports whether the key appeared with an explicit null.
func (f Field[T]) IsNull() bool { return f.set && f.null }

// Value returns the value and true when the field is present and non-null.
func (f Field[T]) Value() (T, bool) {
	if !f.set || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

// Ptr converts a present field to a pointer (nil for null). Calling it on an
// absent field also yields nil, so check Set first.
func (f Field[T]) Ptr() *T {
	v, ok := f.Value()
	if !ok {
		return nil
	}
	return &v
}

// UnmarshalJSON is only called by encoding/json when the key is present,
// which is what marks the field as set.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.null = true
		var zero T
		f.value = zero
		return nil
	}
	f.null = false
	return json.Unmarshal(data, &f.value)
}

// MarshalJSON writes null for absent and null fields.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.set || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

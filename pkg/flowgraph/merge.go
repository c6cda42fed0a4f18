package flowgraph

// Value is an optional field of a partial update.
// The zero Value is unset and leaves the current state untouched; a Value
// built with Set overwrites the current state, even with a zero T.
type Value[T any] struct {
	v   T
	set bool
}

// Set returns a Value that overwrites the state field with v.
func Set[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// IsSet reports whether the update carries a value.
func (v Value[T]) IsSet() bool {
	return v.set
}

// Get returns the carried value and whether it was set.
func (v Value[T]) Get() (T, bool) {
	return v.v, v.set
}

// Or returns the carried value if set, otherwise current.
func (v Value[T]) Or(current T) T {
	if v.set {
		return v.v
	}
	return current
}

// Append returns a new slice holding current followed by added.
// current is never modified in place, so earlier snapshots of the state
// keep their length and contents.
func Append[T any](current, added []T) []T {
	if len(added) == 0 {
		return current
	}
	out := make([]T, 0, len(current)+len(added))
	out = append(out, current...)
	return append(out, added...)
}

package wizard

// FieldKind tags whether a value came from derivation or from the user.
type FieldKind string

const (
	KindDerived    FieldKind = "derived"
	KindOverridden FieldKind = "overridden"
)

// Field is a value that re-derivation may replace only while it is still
// derived. Overridden values are sticky.
type Field[T any] struct {
	Kind  FieldKind `json:"kind"`
	Value T         `json:"value"`
}

func Derived[T any](v T) Field[T] {
	return Field[T]{Kind: KindDerived, Value: v}
}

func Overridden[T any](v T) Field[T] {
	return Field[T]{Kind: KindOverridden, Value: v}
}

func (f Field[T]) IsOverridden() bool {
	return f.Kind == KindOverridden
}

// Rederive replaces a derived value and leaves an override alone.
func (f Field[T]) Rederive(v T) Field[T] {
	if f.IsOverridden() {
		return f
	}
	return Derived(v)
}

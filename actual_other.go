package astisdt

// ActualOther wraps metadata that either describes the transport stream carrying it ("actual")
// or a different transport stream referenced by it ("other"), for instance services broadcast
// in another multiplex. Exactly one variant is populated.
type ActualOther[T any] struct {
	other bool
	v     T
}

// NewActual wraps metadata describing the actual transport stream
func NewActual[T any](v T) ActualOther[T] {
	return ActualOther[T]{v: v}
}

// NewOther wraps metadata describing another transport stream
func NewOther[T any](v T) ActualOther[T] {
	return ActualOther[T]{
		other: true,
		v:     v,
	}
}

// Actual returns the wrapped value when it describes the actual transport stream
func (a ActualOther[T]) Actual() (v T, ok bool) {
	if a.other {
		return
	}
	return a.v, true
}

// Other returns the wrapped value when it describes another transport stream
func (a ActualOther[T]) Other() (v T, ok bool) {
	if !a.other {
		return
	}
	return a.v, true
}

// IsOther checks whether the wrapped value describes another transport stream
func (a ActualOther[T]) IsOther() bool { return a.other }

// Value returns the wrapped value whichever the variant
func (a ActualOther[T]) Value() T { return a.v }

// String implements the Stringer interface
func (a ActualOther[T]) String() string {
	if a.other {
		return "other"
	}
	return "actual"
}

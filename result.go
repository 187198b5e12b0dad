package rainbird

import "github.com/jlinford/pyrainbird/sip"

// Result is the outcome of a typed read. When the reply variant matched the
// command's expectation, Value holds the projection. When the controller
// answered with the expected code but a different variant, Raw holds the
// decoded reply untouched so the caller can still inspect it.
type Result[T any] struct {
	Value T
	Raw   *sip.Response
}

// Matched reports whether Value holds a projection.
func (r Result[T]) Matched() bool { return r.Raw == nil }

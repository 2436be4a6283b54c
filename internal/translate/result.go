package translate

// Result holds either a value or the error that prevented it
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail wraps an error
func Fail[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Err returns the error, if any
func (r Result[T]) Err() error {
	return r.err
}

// OrElse returns the value, or fallback when the result failed
func (r Result[T]) OrElse(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}

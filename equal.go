package circq

// Equal reports whether a and b hold the same elements in the same order.
// Capacities are not compared.
func Equal[T comparable](a, b *Queue[T]) bool {
	return EqualFunc(a, b, func(x, y T) bool { return x == y })
}

// EqualFunc is like Equal but compares elements with eq.
func EqualFunc[T, U any](a *Queue[T], b *Queue[U], eq func(T, U) bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := a.Len() - 1; i >= 0; i-- {
		if !eq(a.buf[a.index(i)], b.buf[b.index(i)]) {
			return false
		}
	}
	return true
}

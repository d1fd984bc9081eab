package circq

import "iter"

// Descend returns an iterator over the live elements from the most recently
// pushed to the oldest.
func (q *Queue[T]) Descend() iter.Seq[T] {
	return func(yield func(T) bool) {
		a, b := q.Slices()
		for i := len(b) - 1; i >= 0; i-- {
			if !yield(b[i]) {
				return
			}
		}
		for i := len(a) - 1; i >= 0; i-- {
			if !yield(a[i]) {
				return
			}
		}
	}
}

// DescendPtr is like Descend but yields pointers into storage, so elements can
// be updated in place.
func (q *Queue[T]) DescendPtr() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		a, b := q.Slices()
		for i := len(b) - 1; i >= 0; i-- {
			if !yield(&b[i]) {
				return
			}
		}
		for i := len(a) - 1; i >= 0; i-- {
			if !yield(&a[i]) {
				return
			}
		}
	}
}

// Ascend returns an iterator over the live elements from the oldest to the
// most recently pushed.
func (q *Queue[T]) Ascend() iter.Seq[T] {
	return func(yield func(T) bool) {
		a, b := q.Slices()
		for _, v := range a {
			if !yield(v) {
				return
			}
		}
		for _, v := range b {
			if !yield(v) {
				return
			}
		}
	}
}

// AscendPtr is like Ascend but yields pointers into storage.
func (q *Queue[T]) AscendPtr() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		a, b := q.Slices()
		for i := range a {
			if !yield(&a[i]) {
				return
			}
		}
		for i := range b {
			if !yield(&b[i]) {
				return
			}
		}
	}
}

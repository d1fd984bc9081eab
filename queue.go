// Package circq provides a fixed-capacity circular queue that never allocates
// after construction.
//
// Once the queue is full, every push overwrites the oldest element and hands
// it back to the caller. A Queue is not safe for concurrent use.
package circq

// Queue is a fixed-capacity FIFO queue with overwrite-on-full semantics.
//
// The live elements are the Len() slots ending just before the cursor; every
// other slot holds stale data or the zero value and is never yielded.
type Queue[T any] struct {
	buf    []T
	length int
	cursor int
}

// New creates an empty queue with the given capacity. A zero capacity yields a
// queue that stays empty forever.
func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		panic("circq: capacity must be >= 0")
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

func (q *Queue[T]) Len() int {
	return q.length
}

func (q *Queue[T]) IsEmpty() bool {
	return q.length == 0
}

func (q *Queue[T]) IsFull() bool {
	return q.length == len(q.buf)
}

// Clear forgets every element. Storage is left as-is and gets overwritten by
// later pushes, which proceed as on a fresh queue.
func (q *Queue[T]) Clear() {
	q.length = 0
	q.cursor = 0
}

// Push stores x. If the queue was full, the oldest element is overwritten and
// returned with ok set, which is the value pushed Cap() pushes ago.
func (q *Queue[T]) Push(x T) (evicted T, ok bool) {
	if len(q.buf) == 0 {
		return evicted, false
	}

	if q.length < len(q.buf) {
		q.buf[q.cursor] = x
		q.length++
	} else {
		evicted, q.buf[q.cursor] = q.buf[q.cursor], x
		ok = true
	}

	q.cursor++
	if q.cursor == len(q.buf) {
		q.cursor = 0
	}
	return evicted, ok
}

// Pop removes the most recently pushed element and returns a copy of it.
func (q *Queue[T]) Pop() (T, bool) {
	p, ok := q.PopPtr()
	if !ok {
		var zero T
		return zero, false
	}
	return *p, true
}

// PopPtr is like Pop but returns a pointer into the queue's storage. The slot
// is handed back to the queue, so the pointer is only valid until the next
// call to Push, Clear or any of the Ptr iterators.
func (q *Queue[T]) PopPtr() (*T, bool) {
	if q.length == 0 {
		return nil, false
	}
	if q.cursor == 0 {
		q.cursor = len(q.buf)
	}
	q.cursor--
	q.length--
	return &q.buf[q.cursor], true
}

// Newest returns the most recently pushed element.
func (q *Queue[T]) Newest() (T, bool) {
	if q.length == 0 {
		var zero T
		return zero, false
	}
	return q.buf[q.index(q.length-1)], true
}

// Oldest returns the element that the next push on a full queue would evict.
func (q *Queue[T]) Oldest() (T, bool) {
	if q.length == 0 {
		var zero T
		return zero, false
	}
	return q.buf[q.index(0)], true
}

// At returns the i-th element in logical order [0..Len()-1],
// where 0 is the oldest and Len()-1 is the newest.
func (q *Queue[T]) At(i int) T {
	if i < 0 || i >= q.length {
		panic("circq: index out of range")
	}
	return q.buf[q.index(i)]
}

// index maps a logical position (0 = oldest) to a physical slot.
func (q *Queue[T]) index(i int) int {
	physical := q.cursor - q.length + i
	if physical < 0 {
		physical += len(q.buf)
	}
	return physical
}

// Slices returns the live elements in logical order as two views into the
// queue's storage. Join them if you really need one contiguous slice.
func (q *Queue[T]) Slices() (a, b []T) {
	if q.length == 0 {
		return nil, nil
	}
	if q.length <= q.cursor {
		return q.buf[q.cursor-q.length : q.cursor], nil
	}
	wrapped := q.length - q.cursor
	return q.buf[len(q.buf)-wrapped:], q.buf[:q.cursor]
}

// AppendTo appends the live elements, oldest first, to dst.
func (q *Queue[T]) AppendTo(dst []T) []T {
	a, b := q.Slices()
	dst = append(dst, a...)
	return append(dst, b...)
}

package circq

import (
	"strconv"
	"testing"
)

func TestEmptyQueueEqual(t *testing.T) {
	if !Equal(New[int](5), New[int](5)) {
		t.Fatalf("empty queues differ")
	}
	if !Equal(New[int](5), New[int](6)) {
		t.Fatalf("empty queues of different capacity differ")
	}
	if !Equal(New[int](0), New[int](3)) {
		t.Fatalf("zero-capacity queue differs from an empty one")
	}
}

func TestPartiallyFullQueueEqual(t *testing.T) {
	q1 := fromValues(5, 1, 2, 3)
	q2 := fromValues(5, 1, 2)
	if Equal(q1, q2) {
		t.Fatalf("[1 2 3] == [1 2]")
	}
	q2.Push(3)
	if !Equal(q1, q2) {
		t.Fatalf("[1 2 3] != [1 2 3]")
	}
	q2.Push(4)
	if Equal(q1, q2) {
		t.Fatalf("[1 2 3] == [1 2 3 4]")
	}
}

func TestOverFullQueueEqual(t *testing.T) {
	q1 := fromValues(5, 1, 2, 3, 4, 5, 6, 7)
	q2 := fromValues(5, 1, 2, 3, 4, 5, 6)
	if Equal(q1, q2) {
		t.Fatalf("queues equal before the last push")
	}
	q2.Push(7)
	if !Equal(q1, q2) {
		t.Fatalf("queues differ after the same pushes")
	}
	q2.Push(8)
	if Equal(q1, q2) {
		t.Fatalf("queues equal after an extra push")
	}
	for _, v := range []int{3, 4, 5, 6, 7} {
		q2.Push(v)
	}
	if !Equal(q1, q2) {
		t.Fatalf("queues differ after replaying the live window")
	}
}

func TestEqualIgnoresCapacityAndLayout(t *testing.T) {
	// Same live elements at different physical offsets.
	q1 := fromValues(3, 7, 8, 9)
	q2 := fromValues(10, 1, 2, 3, 4, 7, 8, 9)
	if Equal(q1, q2) {
		t.Fatalf("queues of different length compared equal")
	}
	q3 := fromValues(3, 0, 0, 7, 8, 9)
	if !Equal(q1, q3) {
		t.Fatalf("[7 8 9] != wrapped [7 8 9]")
	}
	q4 := fromValues(6, 7, 8, 9)
	if !Equal(q3, q4) {
		t.Fatalf("capacity took part in the comparison")
	}
}

func TestClearEqual(t *testing.T) {
	q1 := fromValues(5, 1, 2, 3, 4, 5, 6, 7)
	q1.Clear()
	q2 := New[int](5)
	if !Equal(q1, q2) {
		t.Fatalf("cleared queue differs from a new one")
	}
	q2.Push(1)
	q2.Clear()
	if !Equal(q1, q2) {
		t.Fatalf("cleared queues differ")
	}
}

func TestZeroSizedEqual(t *testing.T) {
	q1 := New[struct{}](3)
	for i := 0; i < 4; i++ {
		q1.Push(struct{}{})
	}
	q2 := New[struct{}](3)
	q2.Push(struct{}{})
	q2.Push(struct{}{})
	if Equal(q1, q2) {
		t.Fatalf("queues of length 3 and 2 compared equal")
	}
	for i := 0; i < 3; i++ {
		q2.Push(struct{}{})
		if !Equal(q1, q2) {
			t.Fatalf("full zero-sized queues differ")
		}
	}
}

func TestEqualFunc(t *testing.T) {
	ints := fromValues(3, 1, 2, 3, 4)
	strs := New[string](8)
	for _, s := range []string{"2", "3", "4"} {
		strs.Push(s)
	}
	eq := func(i int, s string) bool { return strconv.Itoa(i) == s }
	if !EqualFunc(ints, strs, eq) {
		t.Fatalf("EqualFunc([2 3 4], [\"2\" \"3\" \"4\"]) = false")
	}
	strs.Push("5")
	if EqualFunc(ints, strs, eq) {
		t.Fatalf("EqualFunc ignored the length difference")
	}
}

package circq

import (
	"math/rand"
	"testing"

	"github.com/eapache/queue"
)

// dropNewest rebuilds m without its most recently added element, since the
// model queue only removes from the front.
func dropNewest(m *queue.Queue) *queue.Queue {
	out := queue.New()
	for i := 0; i < m.Length()-1; i++ {
		out.Add(m.Get(i))
	}
	return out
}

// TestQueueMatchesModel performs randomized operations against an unbounded
// FIFO trimmed to capacity and checks that both agree after every step.
func TestQueueMatchesModel(t *testing.T) {
	for _, capacity := range []int{0, 1, 2, 5, 16} {
		rng := rand.New(rand.NewSource(int64(capacity) + 1))
		q := New[int](capacity)
		model := queue.New()

		for step := 0; step < 5000; step++ {
			switch op := rng.Intn(10); {
			case op < 7:
				v := rng.Intn(100000)
				evicted, ok := q.Push(v)
				if capacity > 0 {
					model.Add(v)
				}
				if model.Length() > capacity {
					want := model.Remove().(int)
					if !ok || evicted != want {
						t.Fatalf("cap %d step %d: Push evicted (%d, %v), want (%d, true)", capacity, step, evicted, ok, want)
					}
				} else if ok {
					t.Fatalf("cap %d step %d: Push evicted %d from a non-full queue", capacity, step, evicted)
				}
			case op < 9:
				v, ok := q.Pop()
				if model.Length() == 0 {
					if ok {
						t.Fatalf("cap %d step %d: Pop returned %d from an empty queue", capacity, step, v)
					}
					continue
				}
				want := model.Get(-1).(int)
				if !ok || v != want {
					t.Fatalf("cap %d step %d: Pop = (%d, %v), want (%d, true)", capacity, step, v, ok, want)
				}
				model = dropNewest(model)
			default:
				q.Clear()
				model = queue.New()
			}

			if q.Len() != model.Length() {
				t.Fatalf("cap %d step %d: Len = %d, want %d", capacity, step, q.Len(), model.Length())
			}
			if q.IsFull() != (q.Len() == capacity) {
				t.Fatalf("cap %d step %d: IsFull = %v with Len %d", capacity, step, q.IsFull(), q.Len())
			}

			i := 0
			for v := range q.Ascend() {
				if want := model.Get(i).(int); v != want {
					t.Fatalf("cap %d step %d: Ascend[%d] = %d, want %d", capacity, step, i, v, want)
				}
				i++
			}
			if i != model.Length() {
				t.Fatalf("cap %d step %d: Ascend yielded %d, want %d", capacity, step, i, model.Length())
			}

			i = 0
			for v := range q.Descend() {
				if want := model.Get(-1 - i).(int); v != want {
					t.Fatalf("cap %d step %d: Descend[%d] = %d, want %d", capacity, step, i, v, want)
				}
				i++
			}
			if i != model.Length() {
				t.Fatalf("cap %d step %d: Descend yielded %d, want %d", capacity, step, i, model.Length())
			}
		}
	}
}

// TestLastCapacityPushesSurvive checks that after any number of pushes the
// queue holds exactly the last Cap() values, newest first.
func TestLastCapacityPushesSurvive(t *testing.T) {
	for capacity := 1; capacity <= 8; capacity++ {
		for n := 0; n <= 3*capacity; n++ {
			q := New[int](capacity)
			for i := 0; i < n; i++ {
				q.Push(i)
			}
			want := min(n, capacity)
			if q.Len() != want {
				t.Fatalf("cap %d after %d pushes: Len = %d, want %d", capacity, n, q.Len(), want)
			}
			next := n - 1
			for v := range q.Descend() {
				if v != next {
					t.Fatalf("cap %d after %d pushes: got %d, want %d", capacity, n, v, next)
				}
				next--
			}
			if next != n-1-want {
				t.Fatalf("cap %d after %d pushes: Descend stopped early at %d", capacity, n, next)
			}
		}
	}
}

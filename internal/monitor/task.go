// Package monitor tracks the lifecycle of named tasks and keeps a bounded
// history of the events each one went through.
package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/DeterminateSystems/circq"
	"github.com/DeterminateSystems/circq/internal/broker"
)

// ErrUnknownEvent is returned for events outside the task lifecycle.
var ErrUnknownEvent = errors.New("unknown event")

const (
	StateStopped    = "stopped"
	StateStarted    = "started"
	StateProcessing = "processing"
	StateIdle       = "idle"
	StateFailed     = "failed"

	eventInit   = "init"
	eventReset  = "reset"
	eventJumpTo = "jump_to"
)

// Events are named after the state they lead to.
var lifecycle = fsm.Events{
	{Name: StateStarted, Src: []string{StateStopped}, Dst: StateStarted},
	{Name: StateProcessing, Src: []string{StateStarted, StateIdle}, Dst: StateProcessing},
	{Name: StateIdle, Src: []string{StateStarted, StateProcessing}, Dst: StateIdle},
	{Name: StateFailed, Src: []string{StateStarted, StateProcessing, StateIdle}, Dst: StateFailed},
	{Name: StateStopped, Src: []string{StateStarted, StateProcessing, StateIdle, StateFailed}, Dst: StateStopped},
}

// IsLifecycleEvent reports whether name can be passed to Task.Event.
func IsLifecycleEvent(name string) bool {
	for _, e := range lifecycle {
		if e.Name == name {
			return true
		}
	}
	return false
}

type Event struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

type IdentifiedEvent struct {
	Task  string `json:"task"`
	Event Event  `json:"event"`
}

// Task is a single monitored task. It is safe for concurrent use.
type Task struct {
	name   string
	broker *broker.Broker[IdentifiedEvent]
	now    func() time.Time
	logger *zap.Logger

	mu     sync.Mutex
	fsm    *fsm.FSM
	events *circq.Queue[Event]

	// entered is the event recorded by the last regular transition.
	entered Event
}

func newTask(name string, historySize int, b *broker.Broker[IdentifiedEvent], now func() time.Time, logger *zap.Logger) *Task {
	t := &Task{
		name:   name,
		broker: b,
		now:    now,
		logger: logger.With(zap.String("task", name)),
		events: circq.New[Event](historySize),
	}

	t.fsm = fsm.NewFSM(
		StateStopped,
		lifecycle,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				t.entered = t.newEvent(e.Dst)
				t.record(t.entered)
			},
		},
	)

	t.emit(t.newEvent(eventInit))
	return t
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) newEvent(name string) Event {
	return Event{
		Event:     name,
		Timestamp: t.now().UTC().Format(time.RFC3339Nano),
	}
}

// record appends ev to the history. Callers hold t.mu.
func (t *Task) record(ev Event) {
	if evicted, ok := t.events.Push(ev); ok {
		t.logger.Debug("history full, evicted oldest event", zap.String("evicted", evicted.Event))
	}
}

func (t *Task) publish(ev Event) {
	t.broker.Publish(IdentifiedEvent{Task: t.name, Event: ev})
}

// emit records and publishes ev. Callers hold t.mu.
func (t *Task) emit(ev Event) {
	t.record(ev)
	t.publish(ev)
}

// State returns the current lifecycle state.
func (t *Task) State() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fsm.Current()
}

// Can reports whether event is a regular transition from the current state.
func (t *Task) Can(event string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fsm.Can(event)
}

// Event moves the task to the state named by event. Repeating the current
// state is a no-op; a transition the lifecycle does not allow jumps straight
// to the target state.
func (t *Task) Event(ctx context.Context, event string) error {
	if !IsLifecycleEvent(event) {
		return errors.Wrapf(ErrUnknownEvent, "task %s: %q", t.name, event)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fsm.Is(event) {
		return nil
	}

	if t.fsm.Cannot(event) {
		t.resetTo(event)
		return nil
	}

	if err := t.fsm.Event(ctx, event); err != nil {
		return errors.Wrapf(err, "task %s", t.name)
	}
	t.publish(t.entered)
	return nil
}

// Reset puts the task back into the stopped state without a transition.
func (t *Task) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.emit(t.newEvent(eventReset))
	t.fsm.SetState(StateStopped)
}

func (t *Task) resetTo(state string) {
	t.logger.Info("jumping to state",
		zap.String("from", t.fsm.Current()),
		zap.String("to", state),
	)
	t.emit(t.newEvent(eventJumpTo))
	t.fsm.SetState(state)
	t.emit(t.newEvent(state))
}

// History returns the retained events, oldest first.
func (t *Task) History() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events.AppendTo(make([]Event, 0, t.events.Len()))
}

// Recent returns up to n retained events, newest first. A negative n returns
// all of them.
func (t *Task) Recent(n int) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n < 0 || n > t.events.Len() {
		n = t.events.Len()
	}
	out := make([]Event, 0, n)
	for ev := range t.events.Descend() {
		if len(out) == n {
			break
		}
		out = append(out, ev)
	}
	return out
}

// ClearHistory forgets every retained event.
func (t *Task) ClearHistory() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events.Clear()
}

type taskJSON struct {
	Task   string  `json:"task"`
	State  string  `json:"state"`
	Events []Event `json:"events"`
}

func (t *Task) MarshalJSON() ([]byte, error) {
	t.mu.Lock()
	out := taskJSON{
		Task:   t.name,
		State:  t.fsm.Current(),
		Events: t.events.AppendTo(make([]Event, 0, t.events.Len())),
	}
	t.mu.Unlock()
	return json.Marshal(out)
}

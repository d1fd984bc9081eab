package monitor

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/DeterminateSystems/circq/internal/broker"
)

// DefaultHistorySize is the number of events retained per task when no size
// is configured.
const DefaultHistorySize = 50

// MaxNameLen is the longest task name Register accepts.
const MaxNameLen = 64

var (
	// ErrTooManyTasks is returned by Register once the registry is full.
	ErrTooManyTasks = errors.New("too many tasks")
	// ErrInvalidName is returned by Register for empty or overlong names.
	ErrInvalidName = errors.New("invalid task name")
)

// Tasks is the registry of monitored tasks, created on first use.
type Tasks struct {
	broker      *broker.Broker[IdentifiedEvent]
	historySize int
	maxTasks    int
	now         func() time.Time
	logger      *zap.Logger

	mu    sync.RWMutex
	tasks map[string]*Task
}

type Option func(*Tasks)

// WithHistorySize sets how many events each task retains.
func WithHistorySize(n int) Option {
	return func(ts *Tasks) {
		ts.historySize = n
	}
}

// WithMaxTasks bounds how many tasks Register creates. Zero means no bound.
func WithMaxTasks(n int) Option {
	return func(ts *Tasks) {
		ts.maxTasks = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(ts *Tasks) {
		ts.now = now
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(ts *Tasks) {
		ts.logger = logger
	}
}

func NewTasks(b *broker.Broker[IdentifiedEvent], opts ...Option) *Tasks {
	ts := &Tasks{
		broker:      b,
		historySize: DefaultHistorySize,
		now:         time.Now,
		logger:      zap.NewNop(),
		tasks:       make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// Get returns the named task, creating it if needed. It ignores the task
// bound and is meant for names the process chose itself.
func (ts *Tasks) Get(name string) *Task {
	t, _ := ts.get(name, false)
	return t
}

// Register is like Get for names that come from clients: it rejects invalid
// names and refuses to grow the registry past its bound.
func (ts *Tasks) Register(name string) (*Task, error) {
	if name == "" || len(name) > MaxNameLen {
		return nil, errors.Wrapf(ErrInvalidName, "%.*q", MaxNameLen, name)
	}
	return ts.get(name, true)
}

func (ts *Tasks) get(name string, bounded bool) (*Task, error) {
	if t, ok := ts.Lookup(name); ok {
		return t, nil
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t, ok := ts.tasks[name]; ok {
		return t, nil
	}
	if bounded && ts.maxTasks > 0 && len(ts.tasks) >= ts.maxTasks {
		ts.logger.Warn("refusing to register task", zap.String("task", name), zap.Int("max_tasks", ts.maxTasks))
		return nil, errors.Wrapf(ErrTooManyTasks, "limit %d", ts.maxTasks)
	}
	t := newTask(name, ts.historySize, ts.broker, ts.now, ts.logger)
	ts.tasks[name] = t
	ts.logger.Debug("registered task", zap.String("task", name))
	return t, nil
}

// Lookup returns the named task if it exists.
func (ts *Tasks) Lookup(name string) (*Task, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.tasks[name]
	return t, ok
}

// Names returns the registered task names in sorted order.
func (ts *Tasks) Names() []string {
	ts.mu.RLock()
	names := make([]string, 0, len(ts.tasks))
	for name := range ts.tasks {
		names = append(names, name)
	}
	ts.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Snapshot returns every task in name order.
func (ts *Tasks) Snapshot() []*Task {
	names := ts.Names()
	out := make([]*Task, 0, len(names))
	for _, name := range names {
		if t, ok := ts.Lookup(name); ok {
			out = append(out, t)
		}
	}
	return out
}

func (ts *Tasks) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Snapshot())
}

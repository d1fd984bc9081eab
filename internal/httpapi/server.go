// Package httpapi serves task histories and live lifecycle events.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/DeterminateSystems/circq/alloccount"
	"github.com/DeterminateSystems/circq/internal/broker"
	"github.com/DeterminateSystems/circq/internal/monitor"
)

type Server struct {
	tasks  *monitor.Tasks
	broker *broker.Broker[monitor.IdentifiedEvent]
	allocs *alloccount.Counter
	logger *zap.Logger

	Heartbeat time.Duration
	Retry     time.Duration
}

func New(tasks *monitor.Tasks, b *broker.Broker[monitor.IdentifiedEvent], allocs *alloccount.Counter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		tasks:     tasks,
		broker:    b,
		allocs:    allocs,
		logger:    logger,
		Heartbeat: 15 * time.Second,
		Retry:     3 * time.Second,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("DELETE /history", s.handleClearHistory)
	mux.HandleFunc("POST /tasks/{task}/{event}", s.handleTaskEvent)
	mux.HandleFunc("GET /debug/alloc", s.handleAlloc)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("SSE server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "serving http")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutting down http server")
		}
		return nil
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("JSON encoding error", zap.Error(err))
	}
}

func (s *Server) lookup(w http.ResponseWriter, name string) (*monitor.Task, bool) {
	task, ok := s.tasks.Lookup(name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown task %q", name), http.StatusNotFound)
	}
	return task, ok
}

type historyResponse struct {
	Task   string          `json:"task"`
	State  string          `json:"state"`
	Events []monitor.Event `json:"events"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	name := params.Get("task")
	if name == "" {
		s.writeJSON(w, s.tasks)
		return
	}

	limit := -1
	if v := params.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}

	order := params.Get("order")
	if order == "" {
		order = "asc"
	}
	if order != "asc" && order != "desc" {
		http.Error(w, fmt.Sprintf("invalid order %q", order), http.StatusBadRequest)
		return
	}

	task, ok := s.lookup(w, name)
	if !ok {
		return
	}

	events := task.Recent(limit)
	if order == "asc" {
		slices.Reverse(events)
	}
	s.writeJSON(w, historyResponse{
		Task:   task.Name(),
		State:  task.State(),
		Events: events,
	})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("task")
	if name == "" {
		http.Error(w, "task is required", http.StatusBadRequest)
		return
	}
	task, ok := s.lookup(w, name)
	if !ok {
		return
	}
	task.ClearHistory()
	s.logger.Info("cleared history", zap.String("task", name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskEvent(w http.ResponseWriter, r *http.Request) {
	name, event := r.PathValue("task"), r.PathValue("event")
	if !monitor.IsLifecycleEvent(event) {
		http.Error(w, fmt.Sprintf("unknown event %q", event), http.StatusBadRequest)
		return
	}

	task, err := s.tasks.Register(name)
	switch errors.Cause(err) {
	case nil:
	case monitor.ErrInvalidName:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case monitor.ErrTooManyTasks:
		s.logger.Warn("task limit reached", zap.String("task", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err = task.Event(r.Context(), event); err != nil {
		s.logger.Warn("task event failed", zap.String("task", name), zap.String("event", event), zap.Error(err))
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeJSON(w, historyResponse{
		Task:   task.Name(),
		State:  task.State(),
		Events: task.History(),
	})
}

func (s *Server) handleAlloc(w http.ResponseWriter, r *http.Request) {
	if s.allocs == nil {
		http.Error(w, "allocation counting disabled", http.StatusNotFound)
		return
	}
	d := s.allocs.Snapshot()
	if r.URL.Query().Get("reset") == "1" {
		s.allocs.Reset()
	}
	s.writeJSON(w, d)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("task")

	var task *monitor.Task
	if name != "" {
		var ok bool
		if task, ok = s.lookup(w, name); !ok {
			return
		}
	}

	// Mandatory SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	logger := s.logger.With(zap.String("client", uuid.NewString()), zap.String("task", name))
	logger.Debug("SSE client connected")
	defer logger.Debug("SSE client disconnected")

	// Subscribe before the snapshot so nothing falls in between.
	ch, unsubscribe := s.broker.Subscribe()
	defer unsubscribe()

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", s.Retry.Milliseconds()); err != nil {
		return
	}

	var snapshot interface{} = s.tasks
	if task != nil {
		snapshot = task
	}
	if !s.writeEvent(w, logger, snapshot) {
		return
	}
	flusher.Flush()

	// Heartbeats to keep connections alive through proxies
	heartbeat := time.NewTicker(s.Heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if name != "" && msg.Task != name {
				continue
			}
			if !s.writeEvent(w, logger, msg) {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes v as an SSE data frame and reports whether the client is
// still writable.
func (s *Server) writeEvent(w http.ResponseWriter, logger *zap.Logger, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("JSON marshalling error", zap.Error(err))
		return true
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err == nil
}

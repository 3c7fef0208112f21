// Package render serializes page painting. A Scheduler lets at most one paint task run
// at a time, newer requests for a surface supersede older ones, and cancelled work
// resolves instead of failing.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetLogLevel sets the log level for the render package.
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}

// ErrSchedulerClosed is returned for work queued after Close.
var ErrSchedulerClosed = errors.New("render: scheduler closed")

// DefaultCancelGrace is how long a cancelled task may keep the paint gate while its
// body winds down.
const DefaultCancelGrace = 2 * time.Second

// Task paints onto a surface. It should return promptly once ctx is cancelled.
type Task func(ctx context.Context) (interface{}, error)

// Result is what a finished ticket resolves to.
type Result struct {
	Value     interface{}
	Cancelled bool
}

// State tracks a ticket through queued → running → resolved | rejected | cancelled.
type State int

const (
	StateQueued State = iota
	StateRunning
	StateResolved
	StateRejected
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Ticket is the caller's handle on one queued task.
type Ticket struct {
	id      uint64
	surface string
	task    Task

	mu     sync.Mutex
	state  State
	result Result
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *Ticket) ID() uint64      { return t.id }
func (t *Ticket) Surface() string { return t.surface }

// Done is closed once the ticket has settled.
func (t *Ticket) Done() <-chan struct{} { return t.done }

func (t *Ticket) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Cancelled reports whether this ticket has been superseded or cancelled.
func (t *Ticket) Cancelled() bool {
	return t.State() == StateCancelled
}

// Wait blocks until the ticket settles or ctx ends. A cancelled ticket resolves with
// Result.Cancelled set and a nil error.
func (t *Ticket) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.result, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// settle moves the ticket into a final state. Only the first call has an effect.
func (t *Ticket) settle(state State, res Result, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state >= StateResolved {
		return false
	}
	t.state, t.result, t.err = state, res, err
	if t.cancel != nil {
		t.cancel()
	}
	close(t.done)
	return true
}

func (t *Ticket) markCancelled() bool {
	return t.settle(StateCancelled, Result{Cancelled: true}, nil)
}

// Scheduler runs paint tasks one at a time across all surfaces.
type Scheduler struct {
	mu          sync.Mutex
	pending     []*Ticket
	active      *Ticket
	closed      bool
	nextID      uint64
	cancelGrace time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCancelGrace bounds how long a cancelled, still running task blocks the next one.
func WithCancelGrace(d time.Duration) Option {
	return func(s *Scheduler) { s.cancelGrace = d }
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{cancelGrace: DefaultCancelGrace}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueueRender schedules task for surfaceID and returns immediately. Any pending task
// for the same surface is cancelled without ever running, a running one is cancelled
// and its eventual result discarded.
func (s *Scheduler) QueueRender(surfaceID string, task Task) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &Ticket{id: s.nextID, surface: surfaceID, task: task, done: make(chan struct{})}
	if s.closed {
		t.settle(StateRejected, Result{}, ErrSchedulerClosed)
		return t
	}

	s.cancelLocked(func(other *Ticket) bool { return other.surface == surfaceID })
	s.pending = append(s.pending, t)
	log.WithFields(logrus.Fields{"surface": surfaceID, "task_id": t.id}).Debug("Render queued")
	s.pumpLocked()
	return t
}

// CancelRender cancels pending and running work for surfaceID.
func (s *Scheduler) CancelRender(surfaceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(func(t *Ticket) bool { return t.surface == surfaceID })
}

// CancelAll cancels every tracked task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(func(*Ticket) bool { return true })
}

// Close cancels everything and rejects later requests.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelLocked(func(*Ticket) bool { return true })
}

func (s *Scheduler) cancelLocked(match func(*Ticket) bool) {
	kept := s.pending[:0]
	for _, t := range s.pending {
		if match(t) {
			t.markCancelled()
			log.WithFields(logrus.Fields{"surface": t.surface, "task_id": t.id}).Debug("Pending render superseded")
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.pending); i++ {
		s.pending[i] = nil
	}
	s.pending = kept

	if a := s.active; a != nil && match(a) && a.markCancelled() {
		log.WithFields(logrus.Fields{"surface": a.surface, "task_id": a.id}).Debug("Running render cancelled")
		time.AfterFunc(s.cancelGrace, func() { s.release(a, true) })
	}
}

// pumpLocked starts the next pending task when the gate is free.
func (s *Scheduler) pumpLocked() {
	if s.active != nil || len(s.pending) == 0 {
		return
	}
	t := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]

	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.state = StateRunning
	t.cancel = cancel
	t.mu.Unlock()

	s.active = t
	go s.run(ctx, t)
}

func (s *Scheduler) run(ctx context.Context, t *Ticket) {
	val, err := invoke(ctx, t.task)
	if err != nil {
		if t.settle(StateRejected, Result{}, err) {
			log.WithFields(logrus.Fields{"surface": t.surface, "task_id": t.id}).WithError(err).Warn("Render failed")
		}
	} else {
		t.settle(StateResolved, Result{Value: val}, nil)
	}
	s.release(t, false)
}

// release frees the gate if t still holds it.
func (s *Scheduler) release(t *Ticket, timedOut bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != t {
		return
	}
	if timedOut {
		log.WithFields(logrus.Fields{"surface": t.surface, "task_id": t.id}).Warn("Cancelled render did not stop in time, releasing paint gate")
	}
	s.active = nil
	s.pumpLocked()
}

func invoke(ctx context.Context, task Task) (val interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render task panicked: %v", r)
		}
	}()
	return task(ctx)
}

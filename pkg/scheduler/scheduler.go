// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler implements the read scheduler (L7): a min-heap
// of read entries keyed by next-run time, a worker pool, and per-entry
// exponential backoff on failure. register_read is specialized relative
// to the other eight callback kinds (pkg/registry) because it carries
// scheduling state (effective interval, next run time, heap position),
// so it is implemented here rather than as an instance of the generic
// registry.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/siphond/siphond/pkg/cdtime"
)

// ReadFunc is a read producer. It is invoked on a scheduler worker under
// the entry's captured interval; cancellation of ctx signals shutdown.
type ReadFunc func(ctx context.Context) error

// State is a read entry's lifecycle state.
type State int

const (
	StateSimple State = iota
	StateComplex
	StatePendingRemoval
)

// LogFunc receives scheduler diagnostics at the numeric severities used
// throughout the daemon (§7: NOTICE=5, WARNING=4).
type LogFunc func(level int, format string, args ...interface{})

const (
	levelWarning = 4
	levelNotice  = 5
)

type readEntry struct {
	name              string
	group             string
	fn                ReadFunc
	interval          cdtime.Time
	effectiveInterval cdtime.Time
	nextReadTime      cdtime.Time
	state             State
	backoff           *backoff.Backoff
	heapIndex         int
}

// readHeap implements container/heap.Interface ordered by nextReadTime.
type readHeap []*readEntry

func (h readHeap) Len() int            { return len(h) }
func (h readHeap) Less(i, j int) bool  { return h[i].nextReadTime < h[j].nextReadTime }
func (h readHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].heapIndex = i; h[j].heapIndex = j }
func (h *readHeap) Push(x interface{}) {
	e := x.(*readEntry)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}
func (h *readHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// DefaultMaxReadInterval is the ceiling effective_interval backs off to,
// matching the reference implementation's one-day default.
const DefaultMaxReadInterval = 24 * time.Hour

// DefaultWorkers is the default read worker pool size.
const DefaultWorkers = 5

// Scheduler is the L7 read scheduler.
type Scheduler struct {
	mu             sync.Mutex
	h              readHeap
	byName         map[string]*readEntry
	wake           chan struct{}
	stopped        bool
	maxInterval    cdtime.Time
	logf           LogFunc
	wg             sync.WaitGroup
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithMaxReadInterval overrides the default one-day backoff ceiling.
func WithMaxReadInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.maxInterval = cdtime.FromNanos(d.Nanoseconds()) }
}

// WithLogFunc wires the scheduler's diagnostics into the daemon's log
// sink.
func WithLogFunc(f LogFunc) Option {
	return func(s *Scheduler) { s.logf = f }
}

// New returns a Scheduler ready for RegisterRead calls; Run starts its
// worker pool.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		byName:      make(map[string]*readEntry),
		wake:        make(chan struct{}),
		maxInterval: cdtime.FromNanos(DefaultMaxReadInterval.Nanoseconds()),
		logf:        func(level int, format string, args ...interface{}) {},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scheduler) broadcastLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// RegisterRead adds a new read producer. Duplicate names are rejected
// (§4.5: "error for read").
func (s *Scheduler) RegisterRead(name, group string, fn ReadFunc, interval cdtime.Time) error {
	if name == "" || fn == nil || interval <= 0 {
		return fmt.Errorf("scheduler: invalid read registration for %q", name)
	}
	k := strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[k]; exists {
		return fmt.Errorf("scheduler: read %q already registered", name)
	}

	e := &readEntry{
		name:              name,
		group:             group,
		fn:                fn,
		interval:          interval,
		effectiveInterval: interval,
		nextReadTime:      cdtime.Now(),
		state:             StateSimple,
		backoff: &backoff.Backoff{
			Min:    time.Duration(interval.Nanos()),
			Max:    time.Duration(s.maxInterval.Nanos()),
			Factor: 2,
		},
	}
	s.byName[k] = e
	heap.Push(&s.h, e)
	s.broadcastLocked()
	return nil
}

// UnregisterRead marks name pending_removal. It is never invoked again;
// the next worker to pop it from the heap frees it rather than
// rescheduling (spec: "unregister marks it pending_removal rather than
// freeing, to coexist with a worker holding it").
func (s *Scheduler) UnregisterRead(name string) error {
	k := strings.ToLower(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byName[k]
	if !ok {
		return fmt.Errorf("scheduler: read %q not registered", name)
	}
	e.state = StatePendingRemoval
	delete(s.byName, k)
	return nil
}

// Run starts n worker goroutines. It returns immediately; call Stop (or
// cancel ctx) to shut the pool down, then Wait.
func (s *Scheduler) Run(ctx context.Context, n int) {
	if n <= 0 {
		n = DefaultWorkers
	}
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go s.workerLoop(ctx)
	}
}

// Stop signals every worker to exit after its current callback, if any,
// returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.broadcastLocked()
	s.mu.Unlock()
}

// Wait blocks until every worker has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) workerLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}

		if s.h.Len() == 0 {
			wake := s.wake
			s.mu.Unlock()
			select {
			case <-wake:
				continue
			case <-ctx.Done():
				return
			}
		}

		root := s.h[0]
		now := cdtime.Now()
		if root.nextReadTime > now {
			wake := s.wake
			wait := time.Duration(root.nextReadTime.Sub(now).Nanos())
			s.mu.Unlock()

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-wake:
				timer.Stop()
			case <-ctx.Done():
				timer.Stop()
				return
			}
			continue
		}

		entry := heap.Pop(&s.h).(*readEntry)
		s.mu.Unlock()

		if entry.state == StatePendingRemoval {
			continue
		}

		start := time.Now()
		err := entry.fn(ctx)
		elapsed := time.Since(start)

		if err != nil {
			d := entry.backoff.Duration()
			entry.effectiveInterval = cdtime.FromNanos(d.Nanoseconds())
			s.logf(levelNotice, "read %q failed: %v", entry.name, err)
		} else {
			entry.backoff.Reset()
			entry.effectiveInterval = entry.interval
		}

		if cdtime.FromNanos(elapsed.Nanoseconds()) > entry.effectiveInterval {
			s.logf(levelWarning, "read %q took %s, longer than its %s interval", entry.name, elapsed, time.Duration(entry.effectiveInterval.Nanos()))
		}

		nowAfter := cdtime.Now()
		entry.nextReadTime = entry.nextReadTime.Add(entry.effectiveInterval)
		if entry.nextReadTime < nowAfter {
			entry.nextReadTime = nowAfter
		}

		s.mu.Lock()
		if entry.state != StatePendingRemoval {
			heap.Push(&s.h, entry)
		}
		s.broadcastLocked()
		s.mu.Unlock()
	}
}

// Len returns the number of live (non-pending-removal) read entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byName)
}

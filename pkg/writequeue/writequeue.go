// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package writequeue implements the asynchronous write pipeline (spec
// L8): an in-process FIFO between readers and writer workers, with
// high/low-watermark probabilistic shedding so a producer's dispatch
// call never blocks on downstream work. Grounded on §4.7;
// golang.org/x/time/rate throttles the "dropping values" log line to at
// most once per second, matching the shedding-log requirement.
package writequeue

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/model"
)

// LogFunc receives write-pipeline diagnostics at the numeric severities
// used throughout the daemon (§7).
type LogFunc func(level int, format string, args ...interface{})

const (
	levelWarning = 4
	levelError   = 3
)

// DefaultWorkers is the default writer worker pool size.
const DefaultWorkers = 5

// Entry is one queued write-pipeline item: a cloned value list plus the
// context it was dispatched under (so writer workers run under the
// producer's interval, not their own).
type Entry struct {
	ValueList model.ValueList
	Context   interface{} // opaque; installed around the process func by the caller
}

type node struct {
	entry Entry
	next  *node
}

// Queue is the L8 write pipeline: a mutex/condvar-protected singly
// linked FIFO, a worker pool, and watermark-based shedding.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	head     *node
	tail     *node
	length   int
	stopped  bool
	hostname string

	low  int
	high int

	dropped   atomic.Int64
	dropLimit *rate.Limiter
	logf      LogFunc

	process func(context.Context, Entry)

	wg sync.WaitGroup
}

// Option configures a Queue at construction.
type Option func(*Queue)

// WithWatermarks sets the low/high shedding watermarks. high == 0
// disables shedding entirely (§4.7).
func WithWatermarks(low, high int) Option {
	return func(q *Queue) { q.low, q.high = low, high }
}

// WithHostname overrides the local hostname substituted for an empty
// ValueList.Host.
func WithHostname(h string) Option {
	return func(q *Queue) { q.hostname = h }
}

// WithLogFunc wires the queue's diagnostics into the daemon's log sink.
func WithLogFunc(f LogFunc) Option {
	return func(q *Queue) { q.logf = f }
}

// New returns a Queue ready for Enqueue calls. process is invoked by
// every worker for every dequeued entry; Run starts the worker pool.
func New(process func(context.Context, Entry), opts ...Option) *Queue {
	q := &Queue{
		process:   process,
		dropLimit: rate.NewLimiter(rate.Every(time.Second), 1),
		logf:      func(level int, format string, args ...interface{}) {},
	}
	q.cond = sync.NewCond(&q.mu)
	for _, o := range opts {
		o(q)
	}
	return q
}

// dropProbability returns the shedding probability at the given queue
// length, per §4.7: 0 below low, 1 at/above high, linear between.
func (q *Queue) dropProbability(length int) float64 {
	if q.high <= 0 {
		return 0
	}
	if length >= q.high {
		return 1
	}
	if length < q.low {
		return 0
	}
	p := float64(length-q.low) / float64(q.high-q.low)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// Enqueue clones vl, stamps defaults (host/time/interval), and links it
// onto the queue tail unless shedding drops it. defaultInterval is the
// calling thread's captured context interval (§4.1: "if zero at
// dispatch, the thread's context interval is substituted"); callerCtx is
// opaque caller state reinstalled around process when a worker dequeues
// this entry.
func (q *Queue) Enqueue(vl model.ValueList, defaultInterval cdtime.Time, callerCtx interface{}) {
	clone := vl.Clone()
	if clone.Host == "" {
		clone.Host = q.hostname
		if clone.Host == "" {
			clone.Host = "localhost"
		}
	}
	if clone.Time.IsZero() {
		clone.Time = cdtime.Now()
	}
	if clone.Interval.IsZero() {
		clone.Interval = defaultInterval
	}

	q.mu.Lock()
	length := q.length
	p := q.dropProbability(length)
	// §4.7: draw a uniform random in [0,1); above p, keep; else drop.
	if p > 0 && rand.Float64() <= p {
		q.mu.Unlock()
		q.dropped.Add(1)
		if q.dropLimit.Allow() {
			q.logf(levelError, "writequeue: dropping values (queue length %d)", length)
		}
		return
	}

	n := &node{entry: Entry{ValueList: clone, Context: callerCtx}}
	if q.tail == nil {
		q.head = n
		q.tail = n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.length++
	q.mu.Unlock()
	q.cond.Signal()
}

// Run starts n worker goroutines. It returns immediately; call Stop (or
// cancel ctx) to shut the pool down, then Wait.
func (q *Queue) Run(ctx context.Context, n int) {
	if n <= 0 {
		n = DefaultWorkers
	}
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go q.workerLoop(ctx)
	}
	// A dedicated goroutine wakes waiting workers when ctx is cancelled,
	// since sync.Cond has no channel-based cancellation.
	go func() {
		<-ctx.Done()
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		q.cond.Broadcast()
	}()
}

// Stop signals every worker to exit once the queue is empty; entries
// already queued are still processed first. Enqueue does not check the
// stopped flag.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Wait blocks until every worker has exited, then logs (and drops) any
// entries left in the queue.
func (q *Queue) Wait() {
	q.wg.Wait()

	q.mu.Lock()
	remaining := q.length
	q.head, q.tail, q.length = nil, nil, 0
	q.mu.Unlock()

	if remaining > 0 {
		q.logf(levelWarning, "writequeue: %d entries discarded at shutdown", remaining)
	}
}

func (q *Queue) workerLoop(ctx context.Context) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for q.head == nil && !q.stopped {
			q.cond.Wait()
		}
		if q.head == nil && q.stopped {
			q.mu.Unlock()
			return
		}
		n := q.head
		q.head = n.next
		if q.head == nil {
			q.tail = nil
		}
		q.length--
		q.mu.Unlock()

		q.process(ctx, n.entry)
	}
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// Dropped returns the cumulative number of entries shed by watermark
// probability, exposed via internal/admin's /metrics endpoint as
// collectd_write_queue_dropped.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

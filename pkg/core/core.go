// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package core implements the dispatch facade (L10): the single
// entry point producers call, plus the glue that drives the value
// cache (L5), the filter chain (L9) and the write pipeline (L8) in the
// order §2 and §4.10 describe. It also owns process-wide singleton
// state (§9 "Global state"): the data-set registry, the nine
// callback registries, the read scheduler, the write queue and the
// value cache, structured as fields of one Core value constructed at
// startup (tests instantiate their own).
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/siphond/siphond/pkg/cache"
	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/chain"
	"github.com/siphond/siphond/pkg/model"
	"github.com/siphond/siphond/pkg/registry"
	"github.com/siphond/siphond/pkg/scheduler"
	"github.com/siphond/siphond/pkg/writequeue"
)

// Log severities, §7.
const (
	LevelError    = 3
	LevelWarning  = 4
	LevelNotice   = 5
	LevelInfo     = 6
	LevelDebug    = 7
	LevelCritical = 2
)

// Strictness controls whether a data-source-count mismatch between a
// value list and its registered data set drops the value list (Strict)
// or merely warns and continues (Lenient) — §4.10 step 2.
type Strictness int

const (
	Lenient Strictness = iota
	Strict
)

// Config bundles the construction-time tunables of a Core.
type Config struct {
	ReadWorkers     int
	WriteWorkers    int
	QueueLowWater   int
	QueueHighWater  int
	Hostname        string
	DefaultInterval cdtime.Time
	Strictness      Strictness
	TimeoutFactor   float64 // cache staleness multiplier, §4.4
}

// DefaultTimeoutFactor is the reference implementation's default cache
// timeout multiplier (2 missed intervals before "missing").
const DefaultTimeoutFactor = 2.0

// Core aggregates every process-wide singleton the engine needs.
type Core struct {
	cfg Config

	DataSets   *model.DataSetRegistry
	Registries *registry.Registries
	Scheduler  *scheduler.Scheduler
	Queue      *writequeue.Queue
	Cache      *cache.Cache
	Chains     *chain.Set

	mu        sync.RWMutex
	preChain  *chain.Chain
	postChain *chain.Chain
}

// New constructs a Core ready for registration calls. Call Run to start
// the scheduler and write-pipeline worker pools.
func New(cfg Config) *Core {
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = cdtime.FromSeconds(10)
	}
	if cfg.TimeoutFactor <= 0 {
		cfg.TimeoutFactor = DefaultTimeoutFactor
	}

	c := &Core{
		cfg:        cfg,
		DataSets:   model.NewDataSetRegistry(),
		Registries: registry.NewRegistries(),
		Cache:      cache.New(),
		Chains:     chain.NewSet(),
	}
	c.Scheduler = scheduler.New(scheduler.WithLogFunc(c.logf))
	c.Queue = writequeue.New(c.processQueueEntry,
		writequeue.WithWatermarks(cfg.QueueLowWater, cfg.QueueHighWater),
		writequeue.WithHostname(cfg.Hostname),
		writequeue.WithLogFunc(writequeue.LogFunc(c.logf)),
	)
	return c
}

// SetPreCacheChain installs the chain run before the cache update. A nil
// chain means "no pre-cache filtering" (every value list reaches the
// cache).
func (c *Core) SetPreCacheChain(ch *chain.Chain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preChain = ch
}

// SetPostCacheChain installs the chain run after the cache update. A nil
// chain means "run the default write-to-all action instead" (§4.8).
func (c *Core) SetPostCacheChain(ch *chain.Chain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postChain = ch
}

func (c *Core) chains() (pre, post *chain.Chain) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preChain, c.postChain
}

// Run starts the scheduler and write-pipeline worker pools.
func (c *Core) Run(ctx context.Context) {
	c.Scheduler.Run(ctx, c.cfg.ReadWorkers)
	c.Queue.Run(ctx, c.cfg.WriteWorkers)
}

// logf is the Core's own fallback log sink: it fans out to every
// registered log callback, or writes to pkg/log directly when none are
// registered (§4.5: "the single log entry point drops into stderr
// when no log callbacks are registered").
func (c *Core) logf(level int, format string, args ...interface{}) {
	c.Log(level, format, args...)
}

// --- Data sets -------------------------------------------------------

// RegisterDataSet inserts ds into the data-set registry, logging a
// replacement when an existing entry's sources diverge (§3).
func (c *Core) RegisterDataSet(ds model.DataSet) {
	if replaced := c.DataSets.Register(ds); replaced {
		c.Log(LevelNotice, "core: data set %q replaced with diverging sources", ds.TypeName)
	}
}

// LookupDataSet returns the data set registered under name, if any.
func (c *Core) LookupDataSet(name string) (model.DataSet, bool) {
	return c.DataSets.Lookup(name)
}

// --- Generic callback registrations -----------------------------------

// RegisterInit registers an init callback, run once at startup.
func (c *Core) RegisterInit(name string, fn registry.InitFunc) error {
	return c.Registries.Init.Register(name, fn, registry.Context{})
}

// RegisterWrite registers a write callback.
func (c *Core) RegisterWrite(name string, fn registry.WriteFunc) error {
	return c.Registries.Write.Register(name, fn, registry.Context{})
}

// RegisterNotification registers a notification callback.
func (c *Core) RegisterNotification(name string, fn registry.NotificationFunc) error {
	return c.Registries.Notification.Register(name, fn, registry.Context{})
}

// RegisterLog registers a log callback.
func (c *Core) RegisterLog(name string, fn registry.LogFunc) error {
	return c.Registries.Log.Register(name, fn, registry.Context{})
}

// RegisterShutdown registers a shutdown callback.
func (c *Core) RegisterShutdown(name string, fn registry.ShutdownFunc) error {
	return c.Registries.Shutdown.Register(name, fn, registry.Context{})
}

// RegisterMissing registers a missing (staleness) callback.
func (c *Core) RegisterMissing(name string, fn registry.MissingFunc) error {
	return c.Registries.Missing.Register(name, fn, registry.Context{})
}

// RegisterConfig registers a configuration callback.
func (c *Core) RegisterConfig(name string, fn registry.ConfigFunc) error {
	return c.Registries.Config.Register(name, fn, registry.Context{})
}

// RegisterFlush registers a flush callback. When ctx.FlushInterval > 0,
// a synthetic read entry named "flush/<name>" is also registered on the
// scheduler that calls fn with ctx.FlushTimeout as the max staleness
// (§4.5: "register_flush optionally schedules a self-driven
// periodic flush").
func (c *Core) RegisterFlush(name string, fn registry.FlushFunc, ctx registry.Context) error {
	if err := c.Registries.Flush.Register(name, fn, ctx); err != nil {
		return err
	}
	if ctx.FlushInterval > 0 {
		readName := "flush/" + name
		err := c.Scheduler.RegisterRead(readName, "flush", func(rctx context.Context) error {
			return fn(ctx.FlushTimeout, "")
		}, ctx.FlushInterval)
		if err != nil {
			return fmt.Errorf("core: self-driven flush registration for %q: %w", name, err)
		}
	}
	return nil
}

// --- Read registration -------------------------------------------------

// ReadFunc is a read producer's callback. d is bound to this
// registration's context so DispatchValues substitutes the right
// default interval without relying on thread-local storage (§9
// "Design notes": "Model as an explicit argument threaded through the
// scheduler/pipeline rather than thread-local storage when porting").
type ReadFunc func(ctx context.Context, d *Dispatcher) error

// RegisterRead registers a read producer at the given interval.
func (c *Core) RegisterRead(name, group string, interval cdtime.Time, fn ReadFunc) error {
	rc := registry.Context{Interval: interval}
	d := &Dispatcher{core: c, ctx: rc}
	return c.Scheduler.RegisterRead(name, group, func(ctx context.Context) error {
		return fn(ctx, d)
	}, interval)
}

// UnregisterRead removes a read producer.
func (c *Core) UnregisterRead(name string) error {
	return c.Scheduler.UnregisterRead(name)
}

// --- Logging ------------------------------------------------------------

// Log fans out a log line to every registered log callback in
// registration order; when none are registered it falls back to
// pkg/log's severity-prefixed writers directly.
func (c *Core) Log(level int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	entries := c.Registries.Log.Snapshot()
	if len(entries) == 0 {
		fallbackLog(level, msg)
		return
	}
	for _, e := range entries {
		e.Fn(level, msg)
	}
}

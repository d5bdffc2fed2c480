// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package housekeep drives the two fixed-cadence background ticks the
// daemon's main thread owns: the cache-timeout sweep (check_timeout,
// which turns stale cache entries into "missing" callbacks) and a
// periodic flush-all. It is deliberately not the read scheduler
// (pkg/scheduler): that package's per-entry exponential backoff and
// min-heap reschedule are the plugin-read engine's own bespoke logic;
// this package only needs two fixed-interval outer-loop ticks, the same
// relationship a cron-style background service has to its task runner.
package housekeep

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/core"
)

// Scheduler owns the gocron scheduler instance and the jobs registered on
// it.
type Scheduler struct {
	s gocron.Scheduler
}

// Start builds and starts the housekeeping scheduler: a cache-timeout
// sweep every checkInterval, and a flush-all every flushInterval with the
// given flushTimeout (0 means "flush everything regardless of age").
func Start(c *core.Core, checkInterval, flushInterval, flushTimeout time.Duration) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if checkInterval > 0 {
		if _, err := s.NewJob(
			gocron.DurationJob(checkInterval),
			gocron.NewTask(func() {
				c.CheckCacheTimeout(cdtime.Now())
			}),
		); err != nil {
			return nil, err
		}
	}

	if flushInterval > 0 {
		timeout := cdtime.FromNanos(flushTimeout.Nanoseconds())
		if _, err := s.NewJob(
			gocron.DurationJob(flushInterval),
			gocron.NewTask(func() {
				c.FlushAll(timeout)
			}),
		); err != nil {
			return nil, err
		}
	}

	s.Start()
	return &Scheduler{s: s}, nil
}

// Shutdown stops the housekeeping scheduler. It does not itself flush —
// core.Core.Shutdown already runs a final FlushAll as part of its own
// fixed sequence.
func (hk *Scheduler) Shutdown() error {
	if hk == nil || hk.s == nil {
		return nil
	}
	return hk.s.Shutdown()
}

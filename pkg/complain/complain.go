// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package complain implements the rate-limited error-reporting facility
// ("complaint") described in §9 and §7: repeated identical errors
// collapse into a single report with an exponentially increasing
// back-off, up to a ceiling, and a "back to normal" message is emitted
// once on recovery. Grounded on collectd's
// src/daemon/utils_complain.h (c_complain/c_complain_once/c_release).
package complain

import (
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
)

// LogFunc delivers a formatted complaint or release message at the given
// numeric severity (§7).
type LogFunc func(level int, msg string)

// MaxInterval is the back-off ceiling, matching the reference
// implementation's one-day cap.
const MaxInterval = 24 * time.Hour

// Complaint tracks one complaint's state. The zero value is usable: the
// first Complain call reports immediately. Complaint is NOT reset by
// re-registration unless the caller creates a new one — per §9's
// decision that a write target's complaint timer resets when the plugin
// is re-registered under the same name, callers key a fresh Complaint to
// each registration handle rather than to the target's name string.
type Complaint struct {
	mu       sync.Mutex
	interval time.Duration // 0 means "not currently complaining"
	last     time.Time
	backoff  *backoff.Backoff
}

// New returns a Complaint ready for use.
func New() *Complaint {
	return &Complaint{
		backoff: &backoff.Backoff{Min: time.Second, Max: MaxInterval, Factor: 2},
	}
}

// Complain reports format/args at level, unless a prior complaint is
// still within its back-off window, in which case the call is a no-op.
// Each report doubles the wait before the next one is allowed, up to
// MaxInterval.
func (c *Complaint) Complain(log LogFunc, level int, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.interval != 0 && now.Sub(c.last) < c.interval {
		return
	}
	if c.backoff == nil {
		c.backoff = &backoff.Backoff{Min: time.Second, Max: MaxInterval, Factor: 2}
	}
	c.interval = c.backoff.Duration()
	c.last = now
	if log != nil {
		log(level, fmt.Sprintf(format, args...))
	}
}

// WouldRelease reports whether a call to Release would emit a message
// (i.e. whether a complaint is currently outstanding).
func (c *Complaint) WouldRelease() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval != 0
}

// Release reports format/args once, if and only if a complaint is
// currently outstanding, and resets the back-off so the next Complain
// reports immediately.
func (c *Complaint) Release(log LogFunc, level int, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interval == 0 {
		return
	}
	c.interval = 0
	c.backoff.Reset()
	if log != nil {
		log(level, fmt.Sprintf(format, args...))
	}
}

// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import "github.com/siphond/siphond/pkg/cdtime"

// Shutdown runs the fixed sequence §4.5 describes: stop accepting
// new reads, drain whatever is already queued for write, flush every
// write plugin once with no timeout (meaning "everything"), then run
// the shutdown callbacks in registration order. A callback's error is
// logged but never aborts the remaining callbacks.
func (c *Core) Shutdown() {
	c.Scheduler.Stop()
	c.Scheduler.Wait()

	c.Queue.Stop()
	c.Queue.Wait()

	for _, err := range c.FlushAll(cdtime.Time(0)) {
		c.Log(LevelWarning, "core: flush during shutdown: %v", err)
	}

	for _, e := range c.Registries.Shutdown.Snapshot() {
		if err := e.Fn(); err != nil {
			c.Log(LevelError, "core: shutdown callback %q: %v", e.Name, err)
		}
	}
}

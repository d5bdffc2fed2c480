// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import "github.com/siphond/siphond/pkg/cdtime"

// CheckCacheTimeout sweeps the value cache for identifiers that have
// gone stale (§4.4) and fans each one out to every registered
// missing callback. Driven by internal/housekeep on a fixed cadence
// independent of any single plugin's read interval.
func (c *Core) CheckCacheTimeout(now cdtime.Time) {
	c.Cache.CheckTimeout(now, c.cfg.TimeoutFactor, func(identifier string, _ cdtime.Time) {
		c.dispatchMissing(identifier)
	})
}

func (c *Core) dispatchMissing(identifier string) {
	for _, e := range c.Registries.Missing.Snapshot() {
		if err := e.Fn(identifier); err != nil {
			c.Log(LevelWarning, "core: missing callback %q for %q: %v", e.Name, identifier, err)
		}
	}
}

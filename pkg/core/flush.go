// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import "github.com/siphond/siphond/pkg/cdtime"

// FlushAll invokes every registered flush callback with timeout and an
// empty identifier (meaning "all"), collecting errors; a single failing
// flush plugin never blocks the others (§7). Driven by
// internal/housekeep on a fixed cadence, and once during Shutdown.
func (c *Core) FlushAll(timeout cdtime.Time) []error {
	return c.Flush("", timeout, "")
}

// Flush invokes the flush callback registered under name (or every one,
// if name is empty) with the given timeout and identifier.
func (c *Core) Flush(name string, timeout cdtime.Time, identifier string) []error {
	var errs []error
	if name != "" {
		e, ok := c.Registries.Flush.Lookup(name)
		if !ok {
			return nil
		}
		if err := e.Fn(timeout, identifier); err != nil {
			c.Log(LevelWarning, "core: flush %q: %v", name, err)
			errs = append(errs, err)
		}
		return errs
	}
	for _, e := range c.Registries.Flush.Snapshot() {
		if err := e.Fn(timeout, identifier); err != nil {
			c.Log(LevelWarning, "core: flush %q: %v", e.Name, err)
			errs = append(errs, err)
		}
	}
	return errs
}

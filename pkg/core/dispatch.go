// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"context"

	"github.com/siphond/siphond/pkg/chain"
	"github.com/siphond/siphond/pkg/model"
	"github.com/siphond/siphond/pkg/writequeue"
)

// DispatchValues is the entry point for producers that are not bound to
// a read-scheduler registration (e.g. internal/plugin/natsbridge's
// push-based subscriber, the collectd network plugin's analogue): it
// behaves exactly like Dispatcher.DispatchValues but substitutes the
// core's configured DefaultInterval rather than a per-registration one.
func (c *Core) DispatchValues(vl model.ValueList) {
	c.Queue.Enqueue(vl, c.cfg.DefaultInterval, nil)
}

// dispatchNotification implements §4.9: synchronous fan-out, in
// registration order, under the caller's own goroutine. A callback
// returning an error is logged but does not stop fan-out.
func (c *Core) dispatchNotification(n model.Notification) {
	for _, e := range c.Registries.Notification.Snapshot() {
		if err := e.Fn(n); err != nil {
			c.Log(LevelWarning, "core: notification callback %q: %v", e.Name, err)
		}
	}
}

// processQueueEntry is the write-queue worker callback (§4.10
// dispatch_values_internal): sanity checks, pre-cache chain, cache
// update, post-cache chain (or the default write-to-all action).
func (c *Core) processQueueEntry(_ context.Context, entry writequeue.Entry) {
	c.dispatchValuesInternal(entry.ValueList)
}

func (c *Core) dispatchValuesInternal(vl model.ValueList) {
	if len(vl.Values) == 0 {
		c.Log(LevelError, "core: dropping value list with no values")
		return
	}
	if vl.Type == "" {
		c.Log(LevelError, "core: dropping value list with empty type")
		return
	}

	ds, ok := c.DataSets.Lookup(vl.Type)
	if !ok {
		c.Log(LevelError, "core: dropping value list: unknown type %q", vl.Type)
		return
	}

	if len(ds.Sources) != len(vl.Values) {
		c.Log(LevelWarning, "core: value list for %q has %d values, data set has %d sources",
			vl.Type, len(vl.Values), len(ds.Sources))
		if c.cfg.Strictness == Strict {
			return
		}
	}

	vl.Identifier = vl.Identifier.Escape()

	pre, post := c.chains()

	if pre != nil {
		if pre.Process(ds, vl, chain.LogFunc(c.logf)) == chain.Stop {
			// §9 open question: a pre-cache stop skips the cache
			// update AND any missing notification for this identifier.
			return
		}
	}

	c.Cache.Update(ds, vl)

	if post != nil {
		post.Process(ds, vl, chain.LogFunc(c.logf))
		return
	}
	c.InvokeAllWrites(ds, vl)
}

// InvokeWrite implements chain.Writer: it calls the write callback
// registered under name, used by the built-in write target when it is
// configured with an explicit subset of writer names.
func (c *Core) InvokeWrite(name string, ds model.DataSet, vl model.ValueList) error {
	e, ok := c.Registries.Write.Lookup(name)
	if !ok {
		return errUnknownWriter(name)
	}
	return e.Fn(ds, vl)
}

// InvokeAllWrites implements chain.Writer: it calls every registered
// write callback and collects their errors (a single failing writer
// never blocks the others, §7 "Propagation policy").
func (c *Core) InvokeAllWrites(ds model.DataSet, vl model.ValueList) []error {
	var errs []error
	for _, e := range c.Registries.Write.Snapshot() {
		if err := e.Fn(ds, vl); err != nil {
			c.Log(LevelError, "core: write callback %q: %v", e.Name, err)
			errs = append(errs, err)
		}
	}
	return errs
}

type errUnknownWriter string

func (e errUnknownWriter) Error() string { return "core: unknown write callback " + string(e) }

var _ chain.Writer = (*Core)(nil)

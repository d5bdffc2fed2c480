// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"github.com/siphond/siphond/pkg/model"
	"github.com/siphond/siphond/pkg/registry"
)

// Dispatcher is the producer-facing handle a read callback uses to hand
// observations back to the core. It carries the registration's captured
// Context (§9: per-callback context installed/restored around each
// invocation), so DispatchValues knows which default interval to
// substitute without thread-local storage.
type Dispatcher struct {
	core *Core
	ctx  registry.Context
}

// DispatchValues clones vl, stamps defaults, and enqueues it onto the
// write pipeline. It never blocks on downstream work (§4.10,
// §4.7): the producer goroutine returns as soon as the clone is linked
// onto the queue (or dropped by shedding).
func (d *Dispatcher) DispatchValues(vl model.ValueList) {
	d.core.Queue.Enqueue(vl, d.ctx.Interval, d.ctx)
}

// DispatchNotification fans n out synchronously to every registered
// notification callback, bypassing the cache and write queue (spec
// §4.9).
func (d *Dispatcher) DispatchNotification(n model.Notification) {
	d.core.dispatchNotification(n)
}

// DispatchMultivalue clones template once per pair and dispatches each as
// its own value list, in pairs' order (§4.10). When storePercentage is
// true, the identifier's type is hard-coded to "percent" and each value
// is rescaled to a percentage of the sum (NaN excluded); storeType only
// applies as the type in the non-percentage case.
func (d *Dispatcher) DispatchMultivalue(template model.ValueList, storePercentage bool, storeType string, pairs []model.MultivaluePair) {
	for _, vl := range model.DispatchMultivalue(template, storePercentage, storeType, pairs) {
		d.DispatchValues(vl)
	}
}

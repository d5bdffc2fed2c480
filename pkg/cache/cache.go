// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache implements the value cache: a content-addressed
// last-value store used for rate derivation (counter/derive/absolute) and
// staleness ("missing") detection. Conceptually grounded on the
// selector-addressed tree in pkg/metricstore (level.go, metricstore.go)
// for its concurrency shape, adapted here to store only the single most
// recent sample per identifier (this daemon is not a durable time-series
// store) plus its own rate-derivation/wrap rules.
package cache

import (
	"errors"
	"math"
	"sync"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/meta"
	"github.com/siphond/siphond/pkg/model"
)

// ErrTryAgain is returned by GetRate when no prior sample exists yet for
// an identifier, or the single sample on file cannot yield a rate.
var ErrTryAgain = errors.New("cache: try again")

type entry struct {
	time     cdtime.Time
	interval cdtime.Time
	values   []model.Value
	meta     *meta.Meta
}

// Cache is the process-wide value cache. The zero value is not usable;
// construct with New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Update inserts or replaces the cache entry for vl's identifier. Called
// from the dispatch path after the pre-cache chain, before the
// post-cache chain.
func (c *Cache) Update(ds model.DataSet, vl model.ValueList) {
	key := vl.Identifier.String()

	values := make([]model.Value, len(vl.Values))
	copy(values, vl.Values)

	var m *meta.Meta
	if vl.Meta != nil {
		m = vl.Meta.Clone()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{
		time:     vl.Time,
		interval: vl.Interval,
		values:   values,
		meta:     m,
	}
}

// GetRate returns a per-source rate for vl as of its own timestamp, using
// the previously cached sample. Returns ErrTryAgain on first sight or
// when the time delta is non-positive (the caller, typically
// FormatValues, should substitute NaN and log once).
func (c *Cache) GetRate(ds model.DataSet, vl model.ValueList) ([]float64, error) {
	key := vl.Identifier.String()

	c.mu.Lock()
	prev, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		return nil, ErrTryAgain
	}

	dt := vl.Time.Sub(prev.time).Seconds()
	if dt <= 0 {
		return nil, ErrTryAgain
	}

	n := len(ds.Sources)
	if len(prev.values) != n || len(vl.Values) != n {
		return nil, ErrTryAgain
	}

	rates := make([]float64, n)
	for i, src := range ds.Sources {
		rates[i] = rateFor(src.Type, prev.values[i], vl.Values[i], dt)
	}
	return rates, nil
}

func rateFor(t model.ValueType, prev, cur model.Value, dt float64) float64 {
	switch t {
	case model.Gauge:
		return cur.GaugeValue()
	case model.Counter:
		d := wrapDelta(prev.CounterValue(), cur.CounterValue())
		return float64(d) / dt
	case model.Derive:
		d := cur.DeriveValue() - prev.DeriveValue()
		return float64(d) / dt
	case model.Absolute:
		return float64(cur.AbsoluteValue()) / dt
	default:
		return math.NaN()
	}
}

// wrapDelta computes new-old for a wrapping unsigned counter, detecting a
// single wrap at 32 or 64 bits when new < old: if old fits in 32 bits the
// wrap is assumed to have happened at 2^32, otherwise at 2^64.
func wrapDelta(old, new uint64) uint64 {
	if new >= old {
		return new - old
	}
	if old < (uint64(1) << 32) {
		return (uint64(1)<<32 - old) + new
	}
	return (uint64(0) - old) + new
}

// CheckTimeout scans the cache for entries whose age (now - last seen
// time) exceeds timeoutMultiplier * interval, invoking missing for each
// before removing it. Invoked once per housekeeping tick.
func (c *Cache) CheckTimeout(now cdtime.Time, timeoutMultiplier float64, missing func(id string, lastSeen cdtime.Time)) {
	type stale struct {
		key  string
		last cdtime.Time
	}
	var goneStale []stale

	c.mu.Lock()
	for key, e := range c.entries {
		if e.interval <= 0 {
			continue
		}
		age := now.Sub(e.time).Seconds()
		if age > timeoutMultiplier*e.interval.Seconds() {
			goneStale = append(goneStale, stale{key: key, last: e.time})
		}
	}
	for _, s := range goneStale {
		delete(c.entries, s.key)
	}
	c.mu.Unlock()

	for _, s := range goneStale {
		if missing != nil {
			missing(s.key, s.last)
		}
	}
}

// Size returns the number of identifiers currently cached, exposed via
// internal/admin's /metrics endpoint.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evict removes an identifier's entry unconditionally, without invoking
// any missing callback.
func (c *Cache) Evict(identifier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, identifier)
}

// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/chain"
	"github.com/siphond/siphond/pkg/model"
	"github.com/siphond/siphond/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeDataSet() model.DataSet {
	return model.DataSet{
		TypeName: "load",
		Sources:  []model.DataSource{{Name: "value", Type: model.Gauge}},
	}
}

func gaugeVL(plugin string, v float64) model.ValueList {
	return model.ValueList{
		Identifier: model.Identifier{Host: "h", Plugin: plugin, Type: "load"},
		Values:     []model.Value{model.NewGauge(v)},
	}
}

func newTestCore() *Core {
	return New(Config{
		Hostname:        "h",
		DefaultInterval: cdtime.FromSeconds(1),
	})
}

func TestRegisterDataSetAndLookup(t *testing.T) {
	c := newTestCore()
	c.RegisterDataSet(gaugeDataSet())

	ds, ok := c.LookupDataSet("load")
	require.True(t, ok)
	assert.Equal(t, "load", ds.TypeName)
}

func TestDispatchValuesInternalDropsUnknownType(t *testing.T) {
	c := newTestCore()

	var called bool
	require.NoError(t, c.RegisterWrite("w", func(model.DataSet, model.ValueList) error {
		called = true
		return nil
	}))

	c.dispatchValuesInternal(gaugeVL("cpu", 1.0))
	assert.False(t, called, "write must not fire for an unregistered type")
}

func TestDispatchValuesInternalDropsEmptyValues(t *testing.T) {
	c := newTestCore()
	c.RegisterDataSet(gaugeDataSet())

	var called bool
	require.NoError(t, c.RegisterWrite("w", func(model.DataSet, model.ValueList) error {
		called = true
		return nil
	}))

	vl := gaugeVL("cpu", 1.0)
	vl.Values = nil
	c.dispatchValuesInternal(vl)
	assert.False(t, called)
}

func TestDispatchValuesInternalDefaultActionWritesToAll(t *testing.T) {
	c := newTestCore()
	c.RegisterDataSet(gaugeDataSet())

	var got model.ValueList
	require.NoError(t, c.RegisterWrite("w", func(ds model.DataSet, vl model.ValueList) error {
		got = vl
		return nil
	}))

	c.dispatchValuesInternal(gaugeVL("cpu", 42.0))
	assert.Equal(t, "cpu", got.Plugin)
	assert.Equal(t, 1, c.Cache.Size())
}

func TestDispatchValuesInternalPreCacheStopSkipsCacheAndWrite(t *testing.T) {
	c := newTestCore()
	c.RegisterDataSet(gaugeDataSet())

	var called bool
	require.NoError(t, c.RegisterWrite("w", func(model.DataSet, model.ValueList) error {
		called = true
		return nil
	}))

	c.SetPreCacheChain(&chain.Chain{
		Rules: []chain.Rule{{
			Matches: []chain.Match{chain.FieldMatch{Field: "plugin", Pattern: regexp.MustCompile(`^cpu$`)}},
			Targets: []chain.Target{chain.StopTarget{}},
		}},
	})

	c.dispatchValuesInternal(gaugeVL("cpu", 1.0))
	assert.False(t, called)
	assert.Equal(t, 0, c.Cache.Size())
}

func TestDispatchValuesInternalPostCacheChainOverridesDefaultWrite(t *testing.T) {
	c := newTestCore()
	c.RegisterDataSet(gaugeDataSet())

	var defaultCalled, namedCalled bool
	require.NoError(t, c.RegisterWrite("default-writer", func(model.DataSet, model.ValueList) error {
		defaultCalled = true
		return nil
	}))
	require.NoError(t, c.RegisterWrite("named-writer", func(model.DataSet, model.ValueList) error {
		namedCalled = true
		return nil
	}))

	c.SetPostCacheChain(&chain.Chain{
		DefaultTargets: []chain.Target{chain.NewWriteTarget(c, []string{"named-writer"}, nil)},
	})

	c.dispatchValuesInternal(gaugeVL("cpu", 1.0))
	assert.True(t, namedCalled)
	assert.False(t, defaultCalled)
	// the cache update still happens before the post-cache chain runs
	assert.Equal(t, 1, c.Cache.Size())
}

func TestDispatchValuesEndToEndThroughQueue(t *testing.T) {
	c := newTestCore()
	c.RegisterDataSet(gaugeDataSet())

	done := make(chan model.ValueList, 1)
	require.NoError(t, c.RegisterWrite("w", func(ds model.DataSet, vl model.ValueList) error {
		done <- vl
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Run(ctx)

	c.DispatchValues(gaugeVL("cpu", 7.0))

	select {
	case vl := <-done:
		assert.Equal(t, "cpu", vl.Plugin)
	case <-time.After(2 * time.Second):
		t.Fatal("write callback never fired")
	}
}

func TestRegisterFlushWithIntervalSchedulesSelfDrivenRead(t *testing.T) {
	c := newTestCore()

	fired := make(chan struct{}, 1)
	err := c.RegisterFlush("archiver", func(timeout cdtime.Time, identifier string) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}, registry.Context{FlushInterval: cdtime.FromSeconds(1), FlushTimeout: cdtime.FromSeconds(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Scheduler.Len())
}

func TestRegisterFlushWithoutIntervalDoesNotTouchScheduler(t *testing.T) {
	c := newTestCore()
	err := c.RegisterFlush("archiver", func(cdtime.Time, string) error { return nil }, registry.Context{})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Scheduler.Len())
}

func TestFlushAllCollectsErrorsWithoutStoppingOthers(t *testing.T) {
	c := newTestCore()

	var secondCalled bool
	require.NoError(t, c.RegisterFlush("fails", func(cdtime.Time, string) error {
		return assert.AnError
	}, registry.Context{}))
	require.NoError(t, c.RegisterFlush("ok", func(cdtime.Time, string) error {
		secondCalled = true
		return nil
	}, registry.Context{}))

	errs := c.FlushAll(cdtime.FromSeconds(0))
	assert.Len(t, errs, 1)
	assert.True(t, secondCalled)
}

func TestCheckCacheTimeoutFiresMissing(t *testing.T) {
	c := newTestCore()
	c.RegisterDataSet(gaugeDataSet())

	vl := gaugeVL("cpu", 1.0)
	vl.Time = cdtime.FromSeconds(1000)
	vl.Interval = cdtime.FromSeconds(1)
	c.Cache.Update(gaugeDataSet(), vl)

	missing := make(chan string, 1)
	require.NoError(t, c.RegisterMissing("notifier", func(identifier string) error {
		missing <- identifier
		return nil
	}))

	c.CheckCacheTimeout(cdtime.FromSeconds(1100))

	select {
	case id := <-missing:
		assert.Contains(t, id, "cpu")
	default:
		t.Fatal("expected a missing callback to fire")
	}
	assert.Equal(t, 0, c.Cache.Size())
}

func TestShutdownRunsCallbacksAndDrainsQueue(t *testing.T) {
	c := newTestCore()
	c.RegisterDataSet(gaugeDataSet())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Run(ctx)

	written := make(chan struct{}, 1)
	require.NoError(t, c.RegisterWrite("w", func(model.DataSet, model.ValueList) error {
		written <- struct{}{}
		return nil
	}))
	c.DispatchValues(gaugeVL("cpu", 1.0))

	var shutdownRan bool
	require.NoError(t, c.RegisterShutdown("final", func() error {
		shutdownRan = true
		return nil
	}))

	c.Shutdown()

	select {
	case <-written:
	default:
		t.Fatal("queued entry was not processed before shutdown returned")
	}
	assert.True(t, shutdownRan)
}

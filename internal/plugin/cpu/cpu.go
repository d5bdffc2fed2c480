// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cpu is a read producer sampling /proc/stat via
// github.com/prometheus/procfs, dispatching one "cpu" value list per
// (core, mode) pair as a monotonically increasing jiffy counter — the Go
// analogue of collectd's cpu plugin (src/cpu.c was not retrieved into the
// filtered reference set, so the mode set and the counter-of-jiffies
// storage class are grounded on the data model's own type taxonomy and
// procfs.CPUStat's field set rather than a specific C file).
package cpu

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/procfs"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/model"
)

// clockTicksPerSecond is the usual Linux USER_HZ; procfs.CPUStat reports
// seconds, and the jiffies storage class is recovered by multiplying back
// by this constant.
const clockTicksPerSecond = 100.0

// DataSet is the "cpu" type: a single counter source, the cumulative
// jiffies one (core, mode) pair has consumed since boot.
var DataSet = model.DataSet{
	TypeName: "cpu",
	Sources:  []model.DataSource{{Name: "value", Type: model.Counter, Min: 0, Max: 4294967295}},
}

// Plugin samples /proc/stat on every scheduled read.
type Plugin struct {
	fs procfs.FS
}

// New opens /proc via procfs.NewDefaultFS.
func New() (*Plugin, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("cpu: open procfs: %w", err)
	}
	return &Plugin{fs: fs}, nil
}

// Register installs the "cpu" data set and schedules Read at interval
// under the "cpu" read group.
func (p *Plugin) Register(c *core.Core, interval cdtime.Time) error {
	c.RegisterDataSet(DataSet)
	return c.RegisterRead("cpu", "cpu", interval, func(ctx context.Context, d *core.Dispatcher) error {
		return p.Read(ctx, d)
	})
}

func modeValues(s procfs.CPUStat) map[string]float64 {
	return map[string]float64{
		"user":      s.User,
		"nice":      s.Nice,
		"system":    s.System,
		"idle":      s.Idle,
		"wait":      s.Iowait,
		"interrupt": s.IRQ,
		"softirq":   s.SoftIRQ,
		"steal":     s.Steal,
	}
}

// Read implements core.ReadFunc: it samples /proc/stat and dispatches one
// value list per (core, mode), using the already-escaped core index as
// the plugin instance.
func (p *Plugin) Read(_ context.Context, d *core.Dispatcher) error {
	stat, err := p.fs.Stat()
	if err != nil {
		return fmt.Errorf("cpu: read /proc/stat: %w", err)
	}

	for num, s := range stat.CPU {
		instance := strconv.FormatInt(num, 10)
		for mode, seconds := range modeValues(s) {
			d.DispatchValues(model.ValueList{
				Identifier: model.Identifier{
					Plugin:         "cpu",
					PluginInstance: instance,
					Type:           DataSet.TypeName,
					TypeInstance:   mode,
				},
				Values: []model.Value{model.NewCounter(uint64(seconds * clockTicksPerSecond))},
			})
		}
	}
	return nil
}

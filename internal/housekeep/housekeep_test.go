package housekeep

import (
	"testing"
	"time"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRunsCacheTimeoutSweepOnSchedule(t *testing.T) {
	c := core.New(core.Config{Hostname: "h", TimeoutFactor: 0.001})
	ds := model.DataSet{TypeName: "load", Sources: []model.DataSource{{Name: "value", Type: model.Gauge}}}
	c.RegisterDataSet(ds)

	vl := model.ValueList{
		Identifier: model.Identifier{Host: "h", Plugin: "cpu", Type: "load"},
		Time:       cdtime.FromSeconds(1),
		Interval:   cdtime.FromSeconds(1),
		Values:     []model.Value{model.NewGauge(1.0)},
	}
	c.Cache.Update(ds, vl)
	require.Equal(t, 1, c.Cache.Size())

	hk, err := Start(c, 20*time.Millisecond, 0, 0)
	require.NoError(t, err)
	defer hk.Shutdown()

	assert.Eventually(t, func() bool {
		return c.Cache.Size() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestStartWithZeroIntervalsRegistersNoJobs(t *testing.T) {
	c := core.New(core.Config{Hostname: "h"})
	hk, err := Start(c, 0, 0, 0)
	require.NoError(t, err)
	require.NoError(t, hk.Shutdown())
}

func TestShutdownOnNilSchedulerIsNoOp(t *testing.T) {
	var hk *Scheduler
	assert.NoError(t, hk.Shutdown())
}

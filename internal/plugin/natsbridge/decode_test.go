package natsbridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/model"
)

func newTestCore(t *testing.T) (*core.Core, chan model.ValueList) {
	t.Helper()
	c := core.New(core.Config{Hostname: "h"})
	c.RegisterDataSet(model.DataSet{
		TypeName: "load",
		Sources:  []model.DataSource{{Name: "shortterm", Type: model.Gauge}},
	})

	seen := make(chan model.ValueList, 1)
	require.NoError(t, c.RegisterWrite("capture", func(ds model.DataSet, vl model.ValueList) error {
		seen <- vl
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c.Run(ctx)

	return c, seen
}

func TestDecodeAndDispatchParsesKnownMeasurement(t *testing.T) {
	c, seen := newTestCore(t)

	line := []byte("load,host=h,plugin=cpu shortterm=1.5 1700000000000000000\n")
	require.NoError(t, decodeAndDispatch(c, line))

	select {
	case vl := <-seen:
		assert.Equal(t, "h", vl.Host)
		assert.Equal(t, "cpu", vl.Plugin)
		assert.Equal(t, "load", vl.Type)
		require.Len(t, vl.Values, 1)
		assert.Equal(t, 1.5, vl.Values[0].GaugeValue())
	case <-time.After(2 * time.Second):
		t.Fatal("expected a dispatched value list")
	}
}

func TestDecodeAndDispatchSkipsUnknownMeasurement(t *testing.T) {
	c, seen := newTestCore(t)

	line := []byte("unknown,host=h field=1 1700000000000000000\n")
	require.NoError(t, decodeAndDispatch(c, line))

	select {
	case vl := <-seen:
		t.Fatalf("unexpected dispatch for unregistered type: %+v", vl)
	default:
	}
}

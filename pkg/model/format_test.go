package model

import (
	"math"
	"testing"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cpuDataSet() DataSet {
	return DataSet{TypeName: "cpu", Sources: []DataSource{
		{Name: "value", Type: Gauge, Min: math.NaN(), Max: math.NaN()},
	}}
}

func TestFormatValuesGauge(t *testing.T) {
	ds := cpuDataSet()
	vl := ValueList{
		Identifier: Identifier{Host: "h", Plugin: "cpu", Type: "cpu"},
		Time:       cdtime.FromSeconds(1700000000),
		Interval:   cdtime.FromSeconds(10),
		Values:     []Value{NewGauge(0.5)},
	}
	s, err := FormatValues(ds, vl, nil)
	require.NoError(t, err)
	assert.Equal(t, "1700000000:0.5", s)
}

func TestParseValuesNow(t *testing.T) {
	ds := DataSet{TypeName: "counter_type", Sources: []DataSource{{Name: "value", Type: Counter}}}
	_, values, err := ParseValues("N:100", ds)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, uint64(100), values[0].CounterValue())
}

func TestParseValueUOnlyForGauge(t *testing.T) {
	_, err := ParseValue("U", Counter)
	assert.Error(t, err)

	v, err := ParseValue("U", Gauge)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v.GaugeValue()))
}

func TestDispatchMultivaluePercentage(t *testing.T) {
	template := ValueList{Identifier: Identifier{Host: "h", Plugin: "df", Type: "df_complex"}}
	out := DispatchMultivalue(template, true, "percent", []MultivaluePair{
		{Name: "used", Value: 25},
		{Name: "free", Value: 75},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "used", out[0].TypeInstance)
	assert.Equal(t, "free", out[1].TypeInstance)
	total := 0.0
	for _, vl := range out {
		assert.Equal(t, "percent", vl.Type)
		total += vl.Values[0].GaugeValue()
	}
	assert.InDelta(t, 100, total, 1e-9)
}

func TestDispatchMultivalueNonPercentageUsesStoreType(t *testing.T) {
	template := ValueList{Identifier: Identifier{Host: "h", Plugin: "cpu", Type: "cpu"}}
	out := DispatchMultivalue(template, false, "ps_state", []MultivaluePair{
		{Name: "running", Value: 4},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "ps_state", out[0].Type)
	assert.Equal(t, 4.0, out[0].Values[0].GaugeValue())
}

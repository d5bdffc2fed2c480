package natsbridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/model"
)

func TestEncodeValueListRendersValuesAsFormattedStrings(t *testing.T) {
	vl := model.ValueList{
		Identifier: model.Identifier{Host: "h", Plugin: "cpu", Type: "load"},
		Time:       cdtime.FromSeconds(100),
		Interval:   cdtime.FromSeconds(10),
		Values:     []model.Value{model.NewGauge(3.5), model.NewCounter(42)},
	}

	payload, err := encodeValueList(vl)
	require.NoError(t, err)

	var wire wireValueList
	require.NoError(t, json.Unmarshal(payload, &wire))
	assert.Equal(t, "h", wire.Host)
	assert.Equal(t, "cpu", wire.Plugin)
	assert.Equal(t, "load", wire.Type)
	assert.Equal(t, []string{"3.5", "42"}, wire.Values)
	assert.Equal(t, cdtime.FromSeconds(100).Nanos(), wire.Time)
}

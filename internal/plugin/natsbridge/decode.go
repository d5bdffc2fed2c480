// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package natsbridge

import (
	"fmt"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/model"
)

// decodeAndDispatch decodes every line in data as InfluxDB line
// protocol, treating the measurement as the data set's type name and
// each field as one of its sources by name, and dispatches one value
// list per line via c.DispatchValues. Lines naming an unregistered type
// are skipped, mirroring DecodeLine's handling of unknown measurements.
func decodeAndDispatch(c *core.Core, data []byte) error {
	dec := lineprotocol.NewDecoderWithBytes(data)
	for dec.Next() {
		measurement, err := dec.Measurement()
		if err != nil {
			return err
		}
		typeName := string(measurement)

		ds, ok := c.LookupDataSet(typeName)
		if !ok {
			if err := skipLine(dec); err != nil {
				return err
			}
			continue
		}

		id := model.Identifier{Type: typeName}
		for {
			key, val, err := dec.NextTag()
			if err != nil {
				return err
			}
			if key == nil {
				break
			}
			switch string(key) {
			case "host":
				id.Host = string(val)
			case "plugin":
				id.Plugin = string(val)
			case "plugin_instance":
				id.PluginInstance = string(val)
			case "type_instance":
				id.TypeInstance = string(val)
			}
		}

		values := make([]model.Value, len(ds.Sources))
		for i := range values {
			values[i] = model.NewGauge(0)
		}
		var ts time.Time
		for {
			key, val, err := dec.NextField()
			if err != nil {
				return err
			}
			if key == nil {
				break
			}
			idx := sourceIndex(ds, string(key))
			if idx < 0 {
				continue
			}
			v, err := fieldValue(val, ds.Sources[idx].Type)
			if err != nil {
				return fmt.Errorf("natsbridge: field %q: %w", key, err)
			}
			values[idx] = v
		}

		if ts, err = dec.Time(lineprotocol.Nanosecond, ts); err != nil {
			return err
		}

		c.DispatchValues(model.ValueList{
			Identifier: id,
			Time:       cdtime.FromGoTime(ts),
			Values:     values,
		})
	}
	return nil
}

func skipLine(dec *lineprotocol.Decoder) error {
	for {
		key, _, err := dec.NextTag()
		if err != nil {
			return err
		}
		if key == nil {
			break
		}
	}
	for {
		key, _, err := dec.NextField()
		if err != nil {
			return err
		}
		if key == nil {
			break
		}
	}
	_, err := dec.Time(lineprotocol.Nanosecond, time.Time{})
	return err
}

func sourceIndex(ds model.DataSet, name string) int {
	for i, s := range ds.Sources {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func fieldValue(val lineprotocol.Value, t model.ValueType) (model.Value, error) {
	switch t {
	case model.Gauge:
		switch val.Kind() {
		case lineprotocol.Float:
			return model.NewGauge(val.FloatV()), nil
		case lineprotocol.Int:
			return model.NewGauge(float64(val.IntV())), nil
		case lineprotocol.Uint:
			return model.NewGauge(float64(val.UintV())), nil
		}
	case model.Counter:
		switch val.Kind() {
		case lineprotocol.Uint:
			return model.NewCounter(val.UintV()), nil
		case lineprotocol.Int:
			return model.NewCounter(uint64(val.IntV())), nil
		}
	case model.Derive:
		switch val.Kind() {
		case lineprotocol.Int:
			return model.NewDerive(val.IntV()), nil
		case lineprotocol.Uint:
			return model.NewDerive(int64(val.UintV())), nil
		}
	case model.Absolute:
		switch val.Kind() {
		case lineprotocol.Uint:
			return model.NewAbsolute(val.UintV()), nil
		case lineprotocol.Int:
			return model.NewAbsolute(uint64(val.IntV())), nil
		}
	}
	return model.Value{}, fmt.Errorf("unsupported field kind %s for %s", val.Kind(), t)
}

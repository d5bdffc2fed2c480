// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueType identifies a value's storage class.
type ValueType int

const (
	// Gauge is a floating point value; NaN means "unknown".
	Gauge ValueType = iota
	// Counter is a monotonically increasing unsigned value that wraps at
	// 32 or 64 bits.
	Counter
	// Derive is a monotonically increasing signed value.
	Derive
	// Absolute is an instantaneous unsigned sample, reset on read.
	Absolute
)

func (t ValueType) String() string {
	switch t {
	case Gauge:
		return "gauge"
	case Counter:
		return "counter"
	case Derive:
		return "derive"
	case Absolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// ParseValueType parses the type tags used in type-database records and
// configuration ("GAUGE", "COUNTER", "DERIVE", "ABSOLUTE", either all
// upper case or all lower case; mixed case is rejected).
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "GAUGE", "gauge":
		return Gauge, nil
	case "COUNTER", "counter":
		return Counter, nil
	case "DERIVE", "derive":
		return Derive, nil
	case "ABSOLUTE", "absolute":
		return Absolute, nil
	default:
		return 0, fmt.Errorf("model: unknown value type %q", s)
	}
}

// Value is a tagged union over the four storage classes. The zero value
// is a Gauge of 0.
type Value struct {
	Type     ValueType
	gauge    float64
	counter  uint64
	derive   int64
	absolute uint64
}

// NewGauge constructs a Gauge value. A NaN input means "unknown".
func NewGauge(f float64) Value { return Value{Type: Gauge, gauge: f} }

// NewCounter constructs a Counter value.
func NewCounter(u uint64) Value { return Value{Type: Counter, counter: u} }

// NewDerive constructs a Derive value.
func NewDerive(i int64) Value { return Value{Type: Derive, derive: i} }

// NewAbsolute constructs an Absolute value.
func NewAbsolute(u uint64) Value { return Value{Type: Absolute, absolute: u} }

// GaugeValue returns the float64 payload; valid only when Type == Gauge.
func (v Value) GaugeValue() float64 { return v.gauge }

// CounterValue returns the uint64 payload; valid only when Type == Counter.
func (v Value) CounterValue() uint64 { return v.counter }

// DeriveValue returns the int64 payload; valid only when Type == Derive.
func (v Value) DeriveValue() int64 { return v.derive }

// AbsoluteValue returns the uint64 payload; valid only when Type == Absolute.
func (v Value) AbsoluteValue() uint64 { return v.absolute }

// AsFloat64 returns the value's numeric payload as a float64, regardless
// of its storage class. Used uniformly by rate computation and reporting.
func (v Value) AsFloat64() float64 {
	switch v.Type {
	case Gauge:
		return v.gauge
	case Counter:
		return float64(v.counter)
	case Derive:
		return float64(v.derive)
	case Absolute:
		return float64(v.absolute)
	default:
		return math.NaN()
	}
}

// Format renders the value per spec's value-string format: counter and
// absolute as decimal unsigned, derive as decimal signed, gauge as
// "%.15g" or "U" for NaN.
func (v Value) Format() string {
	switch v.Type {
	case Gauge:
		if math.IsNaN(v.gauge) {
			return "U"
		}
		return strconv.FormatFloat(v.gauge, 'g', 15, 64)
	case Counter:
		return strconv.FormatUint(v.counter, 10)
	case Derive:
		return strconv.FormatInt(v.derive, 10)
	case Absolute:
		return strconv.FormatUint(v.absolute, 10)
	default:
		return "U"
	}
}

// ParseValue parses a single value-string field for the given type.
// "U" is only accepted for Gauge (NaN means unknown).
func ParseValue(s string, t ValueType) (Value, error) {
	if s == "U" {
		if t != Gauge {
			return Value{}, fmt.Errorf("model: \"U\" is only valid for gauge values")
		}
		return NewGauge(math.NaN()), nil
	}
	switch t {
	case Gauge:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("model: parse gauge %q: %w", s, err)
		}
		return NewGauge(f), nil
	case Counter:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("model: parse counter %q: %w", s, err)
		}
		return NewCounter(u), nil
	case Derive:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("model: parse derive %q: %w", s, err)
		}
		return NewDerive(i), nil
	case Absolute:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("model: parse absolute %q: %w", s, err)
		}
		return NewAbsolute(u), nil
	default:
		return Value{}, fmt.Errorf("model: unknown value type %d", t)
	}
}

// MarshalJSON renders a Gauge's NaN as JSON null, mirroring
// schema.Float's semantics; other value classes marshal as plain
// numbers.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Type == Gauge && math.IsNaN(v.gauge) {
		return []byte("null"), nil
	}
	return json.Marshal(v.AsFloat64())
}

// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/siphond/siphond/pkg/cdtime"
)

// FormatValues renders "<time>:<v1>:<v2>..." for vl against ds. When
// rates is non-nil it must have one entry per source; each source is
// rendered as its rate (a float) instead of its raw value — the
// store_rates path used when a post-cache write wants derived rates
// rather than raw counters.
func FormatValues(ds DataSet, vl ValueList, rates []float64) (string, error) {
	if err := ds.Validate(vl.Values); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%.15g", vl.Time.Seconds())
	for i, v := range vl.Values {
		b.WriteByte(':')
		if rates != nil {
			r := rates[i]
			if math.IsNaN(r) {
				b.WriteByte('U')
			} else {
				b.WriteString(strconv.FormatFloat(r, 'g', 15, 64))
			}
			continue
		}
		b.WriteString(v.Format())
	}
	return b.String(), nil
}

// ParseValues parses "<time>:<v1>:<v2>...". The time field is either "N"
// (meaning "now") or an epoch-seconds float. It returns the parsed time
// and the values, ordered per ds.Sources.
func ParseValues(s string, ds DataSet) (cdtime.Time, []Value, error) {
	fields := strings.Split(s, ":")
	if len(fields) != len(ds.Sources)+1 {
		return 0, nil, fmt.Errorf("model: expected %d fields, got %d", len(ds.Sources)+1, len(fields))
	}

	var t cdtime.Time
	if fields[0] == "N" {
		t = cdtime.Now()
	} else {
		secs, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, nil, fmt.Errorf("model: parse time %q: %w", fields[0], err)
		}
		t = cdtime.FromSeconds(secs)
	}

	values := make([]Value, len(ds.Sources))
	for i, src := range ds.Sources {
		v, err := ParseValue(fields[i+1], src.Type)
		if err != nil {
			return 0, nil, err
		}
		values[i] = v
	}
	return t, values, nil
}

// MultivaluePair is one (type instance name, gauge value) entry passed to
// DispatchMultivalue, in emission order.
type MultivaluePair struct {
	Name  string
	Value float64
}

// DispatchMultivalue builds one ValueList per pair, cloning template for
// each and preserving pairs' order (collectd's multivalue varargs are
// ordered, and duplicate names are legitimate repeated samples, not
// overwrites; a map would lose both). When storePercentage is true, the
// identifier's Type is hard-coded to "percent" and each gauge value is
// rescaled to 100*v/sum(v) with NaN inputs excluded from the sum;
// storeType is used as the Type only in the non-percentage case.
func DispatchMultivalue(template ValueList, storePercentage bool, storeType string, pairs []MultivaluePair) []ValueList {
	sum := 0.0
	if storePercentage {
		for _, p := range pairs {
			if !math.IsNaN(p.Value) {
				sum += p.Value
			}
		}
	}

	out := make([]ValueList, 0, len(pairs))
	for _, p := range pairs {
		vl := template.Clone()
		vl.TypeInstance = p.Name
		if storePercentage {
			vl.Type = "percent"
			pct := math.NaN()
			if sum != 0 && !math.IsNaN(p.Value) {
				pct = 100 * p.Value / sum
			}
			vl.Values = []Value{NewGauge(pct)}
		} else {
			vl.Type = storeType
			vl.Values = []Value{NewGauge(p.Value)}
		}
		out = append(out, vl)
	}
	return out
}

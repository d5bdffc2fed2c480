// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chain

import (
	"math"
	"regexp"

	"github.com/siphond/siphond/pkg/model"
)

// FieldMatch matches one of a value list's five identifier fields
// against a compiled regular expression (collectd's match_regex, applied
// to a single named field rather than all of them). Directly grounds
// §8's filter chain test scenario ("plugin=='drop-me'"): construct
// with Field="plugin" and Pattern=regexp.MustCompile(`^drop-me$`).
type FieldMatch struct {
	Field   string
	Pattern *regexp.Regexp
}

func (m FieldMatch) Match(ds model.DataSet, vl model.ValueList) (MatchResult, error) {
	v, err := fieldValue(vl.Identifier, m.Field)
	if err != nil {
		return NoMatch, err
	}
	if m.Pattern.MatchString(v) {
		return Matched, nil
	}
	return NoMatch, nil
}

// Comparator is a threshold comparison operator for ValueMatch.
type Comparator int

const (
	GreaterThan Comparator = iota
	GreaterOrEqual
	LessThan
	LessOrEqual
	EqualTo
)

// ValueMatch matches when the source at Index satisfies the threshold
// comparison against Threshold, analogous to collectd's match_value. NaN
// values never match (an "unknown" gauge is neither greater nor less
// than anything).
type ValueMatch struct {
	Index      int
	Comparator Comparator
	Threshold  float64
}

func (m ValueMatch) Match(ds model.DataSet, vl model.ValueList) (MatchResult, error) {
	if m.Index < 0 || m.Index >= len(vl.Values) {
		return NoMatch, nil
	}
	v := vl.Values[m.Index].AsFloat64()
	if math.IsNaN(v) {
		return NoMatch, nil
	}
	var ok bool
	switch m.Comparator {
	case GreaterThan:
		ok = v > m.Threshold
	case GreaterOrEqual:
		ok = v >= m.Threshold
	case LessThan:
		ok = v < m.Threshold
	case LessOrEqual:
		ok = v <= m.Threshold
	case EqualTo:
		ok = v == m.Threshold
	}
	if ok {
		return Matched, nil
	}
	return NoMatch, nil
}

// TimeDiffMatch matches when vl's timestamp lags more than Threshold
// seconds behind Now(), analogous to collectd's match_timediff — a
// common guard against replaying stale data through a chain.
type TimeDiffMatch struct {
	Now       func() float64
	Threshold float64
}

func (m TimeDiffMatch) Match(ds model.DataSet, vl model.ValueList) (MatchResult, error) {
	now := m.Now
	if now == nil {
		return NoMatch, nil
	}
	if now()-vl.Time.Seconds() > m.Threshold {
		return Matched, nil
	}
	return NoMatch, nil
}

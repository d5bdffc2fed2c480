// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import (
	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/meta"
)

// ValueList is a single timestamped observation: an identifier, a time and
// interval, N parallel values and optional metadata.
type ValueList struct {
	Identifier
	Time     cdtime.Time
	Interval cdtime.Time
	Values   []Value
	Meta     *meta.Meta
}

// Clone returns a deep copy of vl. Metadata is deep-copied; two value
// lists never share a metadata object.
func (vl ValueList) Clone() ValueList {
	values := make([]Value, len(vl.Values))
	copy(values, vl.Values)
	c := vl
	c.Values = values
	if vl.Meta != nil {
		c.Meta = vl.Meta.Clone()
	}
	return c
}

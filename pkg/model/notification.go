// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import (
	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/meta"
)

// Severity is a notification's severity level. Distinct from log
// severities (pkg/log): this is the FAILURE/WARNING/OKAY channel for
// structured events, §7.
type Severity int

const (
	SeverityFailure Severity = 1
	SeverityWarning Severity = 2
	SeverityOkay    Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityFailure:
		return "FAILURE"
	case SeverityWarning:
		return "WARNING"
	case SeverityOkay:
		return "OKAY"
	default:
		return "UNKNOWN"
	}
}

// MaxMessageLen bounds Notification.Message, matching the reference
// implementation's 256-byte notification message buffer.
const MaxMessageLen = 256

// Notification is a textual event with severity, travelling the
// notification fan-out path (bypassing the cache and write queue).
type Notification struct {
	Severity Severity
	Time     cdtime.Time
	Message  string
	Identifier
	Meta *meta.Meta
}

// Clone returns a deep copy with its own metadata tree.
func (n Notification) Clone() Notification {
	c := n
	if n.Meta != nil {
		c.Meta = n.Meta.Clone()
	}
	return c
}

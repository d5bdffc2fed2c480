// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import (
	"encoding/json"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/model"
)

// ConfigFunc handles both the simple key/value and the complex
// (register_complex_config) forms: the simple form is folded into a
// single-level JSON object before being passed here.
type ConfigFunc func(raw json.RawMessage) error

// InitFunc runs once at startup, after configuration.
type InitFunc func() error

// WriteFunc persists or forwards a value list that survived the filter
// chain.
type WriteFunc func(ds model.DataSet, vl model.ValueList) error

// FlushFunc asks a write plugin to flush buffered data older than
// timeout for the given identifier (empty identifier means "all").
type FlushFunc func(timeout cdtime.Time, identifier string) error

// MissingFunc is invoked by the cache's staleness sweep for an
// identifier that has gone quiet.
type MissingFunc func(identifier string) error

// NotificationFunc receives a notification in fan-out order.
type NotificationFunc func(n model.Notification) error

// LogFunc receives a single log line at the given numeric severity
// (§7: ERR=3, WARNING=4, NOTICE=5, INFO=6, DEBUG=7).
type LogFunc func(level int, msg string)

// ShutdownFunc runs once during the fixed shutdown sequence (§4.5).
type ShutdownFunc func() error

// Registries aggregates the eight generic-shape callback kinds. The
// ninth kind, read, is specialized (§4.6) and owned by
// pkg/scheduler instead.
type Registries struct {
	Config       *Registry[ConfigFunc]
	Init         *Registry[InitFunc]
	Write        *Registry[WriteFunc]
	Flush        *Registry[FlushFunc]
	Missing      *Registry[MissingFunc]
	Notification *Registry[NotificationFunc]
	Log          *Registry[LogFunc]
	Shutdown     *Registry[ShutdownFunc]
}

// NewRegistries constructs the eight registries with the duplicate
// policy §4.5 implies per kind: config replaces (plugins commonly
// re-apply config blocks), everything else errors on collision so a
// second plugin cannot silently steal another's name.
func NewRegistries() *Registries {
	return &Registries{
		Config:       New[ConfigFunc](DuplicateReplace),
		Init:         New[InitFunc](DuplicateError),
		Write:        New[WriteFunc](DuplicateError),
		Flush:        New[FlushFunc](DuplicateError),
		Missing:      New[MissingFunc](DuplicateError),
		Notification: New[NotificationFunc](DuplicateError),
		Log:          New[LogFunc](DuplicateError),
		Shutdown:     New[ShutdownFunc](DuplicateError),
	}
}

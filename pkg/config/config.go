// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the daemon's top-level configuration document: the
// global engine tunables (hostname, default interval, worker pool sizes,
// write-queue watermarks, cache timeout factor), the list of type-database
// files to load, the names of the pre-cache/post-cache filter chains, and a
// per-plugin tree of configuration blocks handed to each plugin's own
// decoder unparsed — the core only ever consumes the parsed tree, never
// a specific plugin's schema. Adapted from
// internal/config/config.go's global-singleton-populated-from-JSON shape,
// with validate.go's jsonschema.CompileString pattern generalized into a
// reusable Validate helper, which pkg/natsclient.DecodeConfig also uses.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Document is the root of the configuration tree.
type Document struct {
	Hostname   string `json:"hostname"`
	Interval   string `json:"interval"`
	Timeout    float64 `json:"timeout"`

	ReadThreads  int `json:"read-threads"`
	WriteThreads int `json:"write-threads"`

	WriteQueueLimitLow  int `json:"write-queue-limit-low"`
	WriteQueueLimitHigh int `json:"write-queue-limit-high"`

	TypesDB []string `json:"typesdb"`

	PreCacheChain  string `json:"pre-cache-chain"`
	PostCacheChain string `json:"post-cache-chain"`

	LoadPlugin []string `json:"load-plugin"`

	// Plugin holds each plugin's own configuration block, still raw: the
	// core never parses a plugin's schema; cmd/siphond decodes each block
	// into that plugin's own configuration type.
	Plugin map[string]json.RawMessage `json:"plugin"`

	// Process-level bootstrap options, outside the engine's own scope
	// but still carried on the same top-level document the way
	// ProgramConfig bundles Addr/User/Group alongside its domain config.
	Addr  string `json:"addr"`
	User  string `json:"user"`
	Group string `json:"group"`

	HousekeepInterval string `json:"housekeep-interval"`
	FlushInterval     string `json:"flush-interval"`
	FlushTimeout      string `json:"flush-timeout"`
}

// DocumentSchema is the JSON Schema the top-level document is validated
// against before decoding.
const DocumentSchema = `{
    "type": "object",
    "description": "Top-level siphond configuration document.",
    "properties": {
        "hostname": {"type": "string"},
        "interval": {"type": "string", "description": "default read interval, e.g. \"10s\""},
        "timeout": {"type": "number", "description": "cache staleness multiplier"},
        "read-threads": {"type": "integer", "minimum": 0},
        "write-threads": {"type": "integer", "minimum": 0},
        "write-queue-limit-low": {"type": "integer", "minimum": 0},
        "write-queue-limit-high": {"type": "integer", "minimum": 0},
        "typesdb": {"type": "array", "items": {"type": "string"}},
        "pre-cache-chain": {"type": "string"},
        "post-cache-chain": {"type": "string"},
        "load-plugin": {"type": "array", "items": {"type": "string"}},
        "plugin": {"type": "object"},
        "addr": {"type": "string", "description": "admin HTTP server listen address"},
        "user": {"type": "string"},
        "group": {"type": "string"},
        "housekeep-interval": {"type": "string"},
        "flush-interval": {"type": "string"},
        "flush-timeout": {"type": "string"}
    },
    "required": ["hostname"]
}`

// Load reads and parses the document at path. A missing file is not an
// error — the daemon falls back to Document{}'s zero-value defaults,
// mirroring internal/config/config.go's Init (a missing file only fails
// loudly when the error is something other than "not exist").
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse validates raw against DocumentSchema, then strictly decodes it.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := Validate(DocumentSchema, raw); err != nil {
		return doc, fmt.Errorf("config: validate: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("config: decode: %w", err)
	}
	return doc, nil
}

// PluginConfig returns the raw configuration block registered for name, if
// any, undecoded.
func (d Document) PluginConfig(name string) (json.RawMessage, bool) {
	raw, ok := d.Plugin[name]
	return raw, ok
}

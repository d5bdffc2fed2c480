// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package model implements the core data model: identifiers, values, data
// sets, value lists and notifications, plus the wire-format codecs for
// identifiers and value strings. Grounded on collectd's
// src/daemon/common.c (escape_slashes, format_name, parse_identifier,
// format_values) and src/daemon/meta_data.h-adjacent value semantics.
package model

import (
	"fmt"
	"strings"
)

// MaxFieldLen is the maximum length of a single identifier field,
// including the terminator the reference implementation reserves (64
// bytes total, 63 usable).
const MaxFieldLen = 63

// Identifier is the five-part name that uniquely addresses a time series:
// host/plugin[-plugin_instance]/type[-type_instance].
type Identifier struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
}

func (id Identifier) String() string {
	s, _ := FormatIdentifier(id)
	return s
}

// escapeSlashes mirrors collectd's escape_slashes: a bare "/" becomes
// "root", a leading "/" is stripped, and any remaining "/" becomes "_".
func escapeSlashes(s string) string {
	if s == "/" {
		return "root"
	}
	s = strings.TrimPrefix(s, "/")
	return strings.ReplaceAll(s, "/", "_")
}

func joinInstance(name, instance string) string {
	if instance == "" {
		return escapeSlashes(name)
	}
	return escapeSlashes(name) + "-" + escapeSlashes(instance)
}

// FormatIdentifier produces "host/plugin[-plugin_instance]/type[-type_instance]",
// omitting instance segments when empty. The maximum length bound is
// 5*MaxFieldLen+4 per spec's testable property.
func FormatIdentifier(id Identifier) (string, error) {
	if id.Host == "" || id.Plugin == "" || id.Type == "" {
		return "", fmt.Errorf("model: host, plugin and type are required")
	}
	for _, f := range []string{id.Host, id.Plugin, id.PluginInstance, id.Type, id.TypeInstance} {
		if len(f) > MaxFieldLen {
			return "", fmt.Errorf("model: identifier field exceeds %d bytes", MaxFieldLen)
		}
	}
	host := escapeSlashes(id.Host)
	plugin := joinInstance(id.Plugin, id.PluginInstance)
	typ := joinInstance(id.Type, id.TypeInstance)
	return host + "/" + plugin + "/" + typ, nil
}

// Escape replaces forward slashes with underscores in all five fields,
// mirroring collectd's escape_slashes applied at the dispatch boundary
// before the identifier is formatted or used as a cache key (§4.10
// step 3).
func (id Identifier) Escape() Identifier {
	id.Host = escapeSlashes(id.Host)
	id.Plugin = escapeSlashes(id.Plugin)
	id.PluginInstance = escapeSlashes(id.PluginInstance)
	id.Type = escapeSlashes(id.Type)
	id.TypeInstance = escapeSlashes(id.TypeInstance)
	return id
}

func splitOnFirstDash(s string) (name, instance string) {
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

// ParseIdentifier splits str on the first and last "/", then splits the
// plugin and type segments on the first "-". If str has only two
// "/"-delimited segments and defaultHost is non-empty, the first segment
// is treated as plugin and the second as type, with host defaulting to
// defaultHost.
func ParseIdentifier(str, defaultHost string) (Identifier, error) {
	first := strings.IndexByte(str, '/')
	last := strings.LastIndexByte(str, '/')

	var host, pluginPart, typePart string
	switch {
	case first >= 0 && last > first:
		host = str[:first]
		pluginPart = str[first+1 : last]
		typePart = str[last+1:]
	case first >= 0 && last == first && defaultHost != "":
		host = defaultHost
		pluginPart = str[:first]
		typePart = str[first+1:]
	default:
		return Identifier{}, fmt.Errorf("model: cannot parse identifier %q", str)
	}

	if host == "" || pluginPart == "" || typePart == "" {
		return Identifier{}, fmt.Errorf("model: cannot parse identifier %q", str)
	}

	plugin, pluginInstance := splitOnFirstDash(pluginPart)
	typ, typeInstance := splitOnFirstDash(typePart)

	return Identifier{
		Host:           host,
		Plugin:         plugin,
		PluginInstance: pluginInstance,
		Type:           typ,
		TypeInstance:   typeInstance,
	}, nil
}

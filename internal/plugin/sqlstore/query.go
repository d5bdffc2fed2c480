// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlstore

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Row is one stored (identifier, source) sample.
type Row struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
	Source         string
	Time           int64
	Interval       int64
	ValueType      string
	Value          string
}

// QueryIdentifier returns every stored row for the given plugin/type pair
// on host, most recent first, bounded by limit. Mirrors QueryJobs: build
// with squirrel, run through the shared statement cache, scan manually.
func (s *Store) QueryIdentifier(host, plugin, typeName string, limit uint64) ([]Row, error) {
	query := sq.Select("host", "plugin", "plugin_instance", "type", "type_instance", "source", "time", "interval", "value_type", "value").
		From("value").
		Where(sq.Eq{"host": host, "plugin": plugin, "type": typeName}).
		OrderBy("time DESC").
		Limit(limit)

	rows, err := query.RunWith(s.stmtCache).Query()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Host, &r.Plugin, &r.PluginInstance, &r.Type, &r.TypeInstance, &r.Source, &r.Time, &r.Interval, &r.ValueType, &r.Value); err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountRows returns the number of stored rows, used by tests to confirm
// the write consumer is making progress.
func (s *Store) CountRows() (int, error) {
	var count int
	err := sq.Select("count(*)").From("value").RunWith(s.stmtCache).QueryRow().Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: count: %w", err)
	}
	return count, nil
}

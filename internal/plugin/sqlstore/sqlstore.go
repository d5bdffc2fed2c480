// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sqlstore is a write consumer that persists every dispatched
// value list as one row per source into a SQL table, grounded on the
// teacher's internal/repository package: sqlx for the connection,
// sqlhooks for query timing, and squirrel for building both the INSERT
// statements and the read-side queries an operator runs against the archive.
package sqlstore

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/log"
	"github.com/siphond/siphond/pkg/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS value (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	host            TEXT NOT NULL,
	plugin          TEXT NOT NULL,
	plugin_instance TEXT NOT NULL,
	type            TEXT NOT NULL,
	type_instance   TEXT NOT NULL,
	source          TEXT NOT NULL,
	time            INTEGER NOT NULL,
	interval        INTEGER NOT NULL,
	value_type      TEXT NOT NULL,
	value           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS value_identifier_time ON value (host, plugin, type, time);
`

var registerDriverOnce sync.Once

// Store is the write consumer's sqlite3-backed persistence handle.
type Store struct {
	db        *sqlx.DB
	stmtCache *sq.StmtCache
}

// Open connects to a sqlite3 database at path, wrapping the driver with
// sqlhooks for per-query timing the way repository.Connect does, and
// ensures the value table exists.
func Open(path string) (*Store, error) {
	registerDriverOnce.Do(func() {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &queryHooks{}))
	})

	db, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %q: %w", path, err)
	}
	// sqlite3 does not support concurrent writers; serialize through one
	// connection rather than contending on table locks.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: create schema: %w", err)
	}

	return &Store{db: db, stmtCache: sq.NewStmtCache(db.DB)}, nil
}

// Register installs s as a write consumer and a shutdown callback that
// closes the underlying connection.
func (s *Store) Register(c *core.Core, name string) error {
	if err := c.RegisterWrite(name, s.Write); err != nil {
		return fmt.Errorf("sqlstore: register write: %w", err)
	}
	return c.RegisterShutdown(name, func() error {
		log.Debugf("sqlstore: closing database")
		return s.db.Close()
	})
}

// Write persists one row per value in vl. Per-source failures are
// collected rather than aborting the rest of the value list, matching
// the write pipeline's one-failure-does-not-block-others contract.
func (s *Store) Write(ds model.DataSet, vl model.ValueList) error {
	var firstErr error
	for i, v := range vl.Values {
		name := "value"
		if i < len(ds.Sources) {
			name = ds.Sources[i].Name
		}
		_, err := sq.Insert("value").
			Columns("host", "plugin", "plugin_instance", "type", "type_instance", "source", "time", "interval", "value_type", "value").
			Values(vl.Host, vl.Plugin, vl.PluginInstance, vl.Type, vl.TypeInstance, name, vl.Time.Nanos(), vl.Interval.Nanos(), v.Type.String(), v.Format()).
			RunWith(s.stmtCache).
			Exec()
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sqlstore: insert %s: %w", vl.Identifier, err)
		}
	}
	return firstErr
}

package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siphond/siphond/pkg/cdtime"
	"github.com/siphond/siphond/pkg/config"
	"github.com/siphond/siphond/pkg/core"
)

func newTestCore() *core.Core {
	return core.New(core.Config{Hostname: "h", DefaultInterval: cdtime.FromSeconds(1)})
}

func TestLoadPluginsRejectsUnknownName(t *testing.T) {
	doc := config.Document{LoadPlugin: []string{"does-not-exist"}}
	_, err := loadPlugins(context.Background(), newTestCore(), doc, cdtime.FromSeconds(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown plugin")
}

func TestLoadPluginsRequiresConfigurationBlock(t *testing.T) {
	doc := config.Document{LoadPlugin: []string{"sqlstore"}}
	_, err := loadPlugins(context.Background(), newTestCore(), doc, cdtime.FromSeconds(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no \"plugin.sqlstore\" configuration block")
}

func TestLoadPluginsWiresSqlstoreFromItsConfigBlock(t *testing.T) {
	dbPath := t.TempDir() + "/archive.db"
	doc := config.Document{
		LoadPlugin: []string{"sqlstore"},
		Plugin: map[string]json.RawMessage{
			"sqlstore": json.RawMessage(`{"path": "` + dbPath + `"}`),
		},
	}
	closers, err := loadPlugins(context.Background(), newTestCore(), doc, cdtime.FromSeconds(1))
	require.NoError(t, err)
	assert.Empty(t, closers)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	doc, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, Document{}, doc)
}

func TestParseRejectsMissingHostname(t *testing.T) {
	_, err := Parse([]byte(`{"interval": "10s"}`))
	assert.Error(t, err)
}

func TestParseRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte(`{"hostname": "h", "bogus": 1}`))
	assert.Error(t, err)
}

func TestParseDecodesPluginBlocksUnparsed(t *testing.T) {
	doc, err := Parse([]byte(`{
		"hostname": "h",
		"interval": "10s",
		"write-queue-limit-low": 500,
		"write-queue-limit-high": 1000,
		"load-plugin": ["cpu", "sqlstore"],
		"plugin": {
			"nats": {"address": "nats://localhost:4222"}
		}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "h", doc.Hostname)
	assert.Equal(t, []string{"cpu", "sqlstore"}, doc.LoadPlugin)

	raw, ok := doc.PluginConfig("nats")
	require.True(t, ok)
	assert.Contains(t, string(raw), "nats://localhost:4222")

	_, ok = doc.PluginConfig("missing")
	assert.False(t, ok)
}

func TestLoadReadsFileFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siphond.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hostname": "from-disk"}`), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-disk", doc.Hostname)
}

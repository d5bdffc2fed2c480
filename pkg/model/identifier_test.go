package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierRoundTrip(t *testing.T) {
	cases := []Identifier{
		{Host: "h", Plugin: "cpu", Type: "cpu"},
		{Host: "h", Plugin: "cpu", PluginInstance: "0", Type: "cpu", TypeInstance: "user"},
		{Host: "host.example.com", Plugin: "df", PluginInstance: "root", Type: "percent_bytes", TypeInstance: "used"},
	}
	for _, id := range cases {
		s, err := FormatIdentifier(id)
		require.NoError(t, err)
		got, err := ParseIdentifier(s, "")
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestIdentifierMaxLength(t *testing.T) {
	id := Identifier{Host: "h", Plugin: "p", Type: "t"}
	s, err := FormatIdentifier(id)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(s), 5*MaxFieldLen+4)
}

func TestParseIdentifierTwoSegmentFallback(t *testing.T) {
	got, err := ParseIdentifier("cpu/cpu-user", "localhost")
	require.NoError(t, err)
	assert.Equal(t, Identifier{Host: "localhost", Plugin: "cpu", Type: "cpu", TypeInstance: "user"}, got)
}

func TestEscapeSlashes(t *testing.T) {
	id := Identifier{Host: "/", Plugin: "p", Type: "t"}
	s, err := FormatIdentifier(id)
	require.NoError(t, err)
	assert.Equal(t, "root/p/t", s)
}

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationReturnsDefaultForEmptyString(t *testing.T) {
	d, err := parseDuration("", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}

func TestParseDurationParsesExplicitValue(t *testing.T) {
	d, err := parseDuration("30s", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestParseDurationRejectsMalformedValue(t *testing.T) {
	_, err := parseDuration("not-a-duration", 0)
	assert.Error(t, err)
}

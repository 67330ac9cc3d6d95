package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunNoArgsIsUsageError(t *testing.T) {
	assert.Equal(t, -1, run(nil))
}

func TestRunTooManyArgsIsUsageError(t *testing.T) {
	assert.Equal(t, -1, run([]string{"a.xml", "b.xml"}))
}

func TestRunVersionFlagExitsZero(t *testing.T) {
	assert.Equal(t, 0, run([]string{"-v"}))
	assert.Equal(t, 0, run([]string{"--version"}))
}

func TestRunUnreadableConfigIsUsageError(t *testing.T) {
	assert.Equal(t, -1, run([]string{filepath.Join(t.TempDir(), "missing.xml")}))
}

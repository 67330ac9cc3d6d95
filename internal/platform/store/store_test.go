package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusKeyNamespacesByRunID(t *testing.T) {
	s := &Store{}
	assert.Equal(t, "ore:run:r1:status", s.statusKey("r1"))
	assert.NotEqual(t, s.statusKey("r1"), s.statusKey("r2"))
}

package oreerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationStringEmptyWhenZero(t *testing.T) {
	assert.Equal(t, "", Location{}.String())
	assert.Equal(t, "3:7", Location{Line: 3, Col: 7}.String())
}

func TestTypedErrorsMatchViaErrorsAs(t *testing.T) {
	cause := errors.New("boom")
	err := NewConfig(cause, "missing key %q", "setup.asofDate")

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, cause)
}

func TestWithLocationStampsLocatedErrors(t *testing.T) {
	var err error = NewParse(Location{}, "unexpected token")
	located := Locate(err, Location{Line: 1, Col: 5})

	var parseErr *ParseError
	assert.True(t, errors.As(located, &parseErr))
	assert.Equal(t, Location{Line: 1, Col: 5}, parseErr.Location())
}

func TestLocateLeavesUnlocatedErrorsUnchanged(t *testing.T) {
	plain := errors.New("plain failure")
	assert.Same(t, plain, Locate(plain, Location{Line: 9, Col: 1}))
}

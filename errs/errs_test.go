package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWrapsCauseAndFormats(t *testing.T) {
	cause := errors.New("bad byte")
	e := New(Parse, cause)
	assert.Equal(t, "parse: bad byte", e.Error())
	// New adds a pkg/errors stack-trace layer around a cause that has none.
	assert.Equal(t, cause, errors.Unwrap(errors.Unwrap(e)))
}

func TestNewWithNilCauseUsesKindName(t *testing.T) {
	e := New(Io, nil)
	assert.Contains(t, e.Error(), "io")
}

func TestNewfFormatsMessage(t *testing.T) {
	e := Newf(Protocol, "stream %d reset", 7)
	assert.Contains(t, e.Error(), "stream 7 reset")
}

func TestIsMatchesWrappedKind(t *testing.T) {
	e := New(UserBody, errors.New("x"))
	wrapped := fmt.Errorf("call failed: %w", e)
	assert.True(t, Is(wrapped, UserBody))
	assert.False(t, Is(wrapped, Io))
}

func TestAsBadRequestOnlyForParse(t *testing.T) {
	status, ok := AsBadRequest(New(Parse, nil))
	assert.True(t, ok)
	assert.Equal(t, 400, status)

	_, ok = AsBadRequest(New(Io, nil))
	assert.False(t, ok)
}

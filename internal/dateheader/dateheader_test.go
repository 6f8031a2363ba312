package dateheader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowMatchesTimeFormat(t *testing.T) {
	got := Now()
	parsed, err := time.Parse(TimeFormat, got)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, 2*time.Second)
}

func TestNowIsStableWithinSameSecond(t *testing.T) {
	a := Now()
	b := Now()
	assert.Equal(t, a, b)
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMustIncrement(t *testing.T) {
	base := time.Unix(1000, 0)
	m := NewManual(base)

	assert.Equal(t, base.Add(time.Nanosecond), m.MustIncrement(base))
	assert.Equal(t, base.Add(time.Second+time.Nanosecond), m.MustIncrement(base.Add(time.Second)))

	m.Advance(time.Minute)

	assert.Equal(t, base.Add(time.Minute), m.MustIncrement(base))
}

func TestGlobalClock(t *testing.T) {
	prev := GlobalClock.Now()

	assert.True(t, MustIncrement(prev).After(prev))

	m := NewManual(prev)

	assert.Same(t, m, Default(m))
	assert.Same(t, &GlobalClock, Default(nil))
}

package connectivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_InitialState(t *testing.T) {
	m := NewMonitor(true, nil)
	assert.True(t, m.IsOnline())
	assert.False(t, m.WasOffline())

	m = NewMonitor(false, nil)
	assert.False(t, m.IsOnline())
	assert.True(t, m.WasOffline(), "starting offline latches the marker")
}

func TestMonitor_Transitions(t *testing.T) {
	m := NewMonitor(true, nil)

	m.MarkOffline()
	assert.False(t, m.IsOnline())
	assert.True(t, m.WasOffline())

	m.MarkOnline()
	assert.True(t, m.IsOnline())
	assert.True(t, m.WasOffline(), "sticky across reconnection")

	m.ResetWasOffline()
	assert.False(t, m.WasOffline())

	// Still online after the reset; the marker only re-latches on a new drop.
	assert.True(t, m.IsOnline())
	m.MarkOffline()
	assert.True(t, m.WasOffline())
}

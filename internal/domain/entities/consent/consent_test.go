package consent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckTransitions(t *testing.T) {
	g := NewGate()
	assert.Equal(t, Unknown, g.State())

	assert.True(t, g.BeginCheck())
	assert.Equal(t, Checking, g.State())
	assert.False(t, g.BeginCheck(), "already checking")

	g.CompleteCheck(true, nil)
	assert.True(t, g.Granted())
	assert.False(t, g.BeginCheck(), "nothing to check once granted")
}

func TestCheckFailuresLeaveUngranted(t *testing.T) {
	g := NewGate()
	g.BeginCheck()
	g.CompleteCheck(true, errors.New("network down"))
	assert.Equal(t, Ungranted, g.State())

	g.BeginCheck()
	g.CompleteCheck(false, nil)
	assert.Equal(t, Ungranted, g.State())
}

func TestGrant(t *testing.T) {
	g := NewGate()
	g.BeginCheck()
	g.CompleteCheck(false, nil)

	assert.True(t, g.BeginGrant())
	assert.False(t, g.BeginGrant(), "single grant in flight")

	g.CompleteGrant(errors.New("500"))
	assert.Equal(t, Ungranted, g.State())
	assert.True(t, g.GrantFailed())

	assert.True(t, g.BeginGrant())
	g.CompleteGrant(nil)
	assert.Equal(t, Granted, g.State())
	assert.False(t, g.GrantFailed())
}

func TestRevoke(t *testing.T) {
	g := NewGate()
	g.BeginGrant()
	g.CompleteGrant(nil)
	g.Revoke()
	assert.Equal(t, Ungranted, g.State())
	assert.Equal(t, "ungranted", g.State().String())
}

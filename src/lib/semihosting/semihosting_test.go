package semihosting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitBuildsParameterBlock(t *testing.T) {
	var gotOp SemiHostingOp
	var gotBlock [2]uint64
	h := NewHost(CallerFunc(func(op SemiHostingOp, param *[2]uint64) uint64 {
		gotOp = op
		gotBlock = *param
		return 0
	}))

	h.Exit(1)
	assert.Equal(t, SemiHostOpExit, gotOp)
	assert.Equal(t, uint64(SemihostingStopApplicationExit), gotBlock[0])
	assert.Equal(t, uint64(1), gotBlock[1])
}

func TestClock(t *testing.T) {
	h := NewHost(CallerFunc(func(op SemiHostingOp, param *[2]uint64) uint64 {
		assert.Equal(t, SemiHostOpClock, op)
		assert.Nil(t, param)
		return 250
	}))
	assert.Equal(t, uint64(250), h.Clock())
}

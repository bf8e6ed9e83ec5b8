package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRounding(t *testing.T) {
	assert.Equal(t, VAddr(0x1000), PageRoundDown(0x1fff))
	assert.Equal(t, VAddr(0x1000), PageRoundDown(0x1000))
	assert.Equal(t, VAddr(0x2000), PageRoundUp(0x1001))
	assert.Equal(t, VAddr(0x1000), PageRoundUp(0x1000))
	assert.Equal(t, VAddr(0xfff), PageOffset(0x1fff))
	assert.True(t, Aligned(0x2000))
	assert.False(t, Aligned(0x2001))
}

func TestStackFloor(t *testing.T) {
	assert.Equal(t, PhysBase-StackLimit, StackFloor())
	assert.True(t, StackFloor() < PhysBase)
}

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmkern/internal/config"
)

func TestBootSizesSingletonsPerConfig(t *testing.T) {
	k := Boot(config.Config{FramePoolPages: 12, SwapSlots: 34})
	assert.Equal(t, 12, k.Frames.Len())
	assert.Equal(t, 34, k.Swap.Slots())
}

func TestCountFaultIncrements(t *testing.T) {
	k := Boot(config.Default())
	assert.Equal(t, uint64(0), k.Faults())
	k.CountFault()
	k.CountFault()
	assert.Equal(t, uint64(2), k.Faults())
}

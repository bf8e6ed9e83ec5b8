package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLimits(t *testing.T) {
	cfg := Default()
	assert.Positive(t, cfg.FramePoolPages)
	assert.Positive(t, cfg.SwapSlots)
	assert.Greater(t, cfg.SwapSlots, cfg.FramePoolPages)
}

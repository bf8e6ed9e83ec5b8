package klog

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOutputRedirectsLogLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Fault(0x1000, true, true, "stack grown")
	Evict(0x2000, "stack", true, "swap")
	Exit("proc", -1)

	out := buf.String()
	assert.Contains(t, out, "page fault")
	assert.Contains(t, out, "evict")
	assert.Contains(t, out, "exit")
}

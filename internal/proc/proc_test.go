package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmkern/internal/config"
	"vmkern/internal/errs"
	"vmkern/internal/kernel"
)

func newKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	return kernel.Boot(config.Config{FramePoolPages: 4, SwapSlots: 8})
}

func TestExitRecordsStatusAndIsIdempotent(t *testing.T) {
	k := newKernel(t)
	p := New(k, "child", nil)

	p.Exit(7)
	status, exited := p.Status()
	assert.True(t, exited)
	assert.Equal(t, 7, status)

	p.Exit(99) // a second Exit must not overwrite the first status
	status, _ = p.Status()
	assert.Equal(t, 7, status)
}

type stubLoader struct {
	child *Process
	errno errs.Errno
}

func (l *stubLoader) Load(parent *Process, cmdline string) (*Process, errs.Errno) {
	return l.child, l.errno
}

func TestExecReturnsChildPIDAndRegistersChild(t *testing.T) {
	k := newKernel(t)
	parent := New(k, "parent", nil)
	child := New(k, "child", parent)

	pid := parent.Exec(&stubLoader{child: child, errno: errs.OK}, "child arg")
	assert.Equal(t, child.PID, pid)
}

func TestExecFailurePropagates(t *testing.T) {
	k := newKernel(t)
	parent := New(k, "parent", nil)

	pid := parent.Exec(&stubLoader{errno: errs.ENOENT}, "missing")
	assert.Equal(t, -1, pid)
}

func TestWaitBlocksUntilChildExitsAndReturnsStatus(t *testing.T) {
	k := newKernel(t)
	parent := New(k, "parent", nil)
	child := New(k, "child", parent)

	require.Equal(t, child.PID, parent.Exec(&stubLoader{child: child, errno: errs.OK}, "x"))

	go func() {
		child.Exit(42)
	}()

	status := parent.Wait(child.PID)
	assert.Equal(t, 42, status)
}

func TestWaitOnSameChildTwiceFails(t *testing.T) {
	k := newKernel(t)
	parent := New(k, "parent", nil)
	child := New(k, "child", parent)
	parent.Exec(&stubLoader{child: child, errno: errs.OK}, "x")

	child.Exit(1)
	assert.Equal(t, 1, parent.Wait(child.PID))
	assert.Equal(t, -1, parent.Wait(child.PID))
}

func TestWaitOnNonChildFails(t *testing.T) {
	k := newKernel(t)
	parent := New(k, "parent", nil)
	assert.Equal(t, -1, parent.Wait(999))
}

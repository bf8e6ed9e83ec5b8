package mmu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmkern/internal/addr"
)

func TestInstallAndLookup(t *testing.T) {
	pd := New()
	pd.Lock()
	defer pd.Unlock()

	pd.Install(0x1000, 7, true)
	f, ok := pd.GetFrame(0x1000)
	assert.True(t, ok)
	assert.Equal(t, Frame(7), f)
	assert.True(t, pd.Resident(0x1000))
	assert.True(t, pd.Writable(0x1000))
}

func TestDoubleInstallPanics(t *testing.T) {
	pd := New()
	pd.Lock()
	defer pd.Unlock()
	pd.Install(0x2000, 1, false)
	assert.Panics(t, func() { pd.Install(0x2000, 2, false) })
}

func TestInstallUnalignedPanics(t *testing.T) {
	pd := New()
	pd.Lock()
	defer pd.Unlock()
	assert.Panics(t, func() { pd.Install(0x2001, 1, false) })
}

func TestClearThenReinstall(t *testing.T) {
	pd := New()
	pd.Lock()
	defer pd.Unlock()
	pd.Install(0x3000, 1, true)
	pd.Clear(0x3000)
	assert.False(t, pd.Resident(0x3000))
	assert.NotPanics(t, func() { pd.Install(0x3000, 2, true) })
}

func TestTouchSetsAccessedAndDirty(t *testing.T) {
	pd := New()
	pd.Lock()
	defer pd.Unlock()
	pd.Install(0x4000, 1, true)
	assert.False(t, pd.IsAccessed(0x4000))
	assert.False(t, pd.IsDirty(0x4000))

	pd.Touch(0x4000, false)
	assert.True(t, pd.IsAccessed(0x4000))
	assert.False(t, pd.IsDirty(0x4000))

	pd.ClearAccessed(0x4000)
	assert.False(t, pd.IsAccessed(0x4000))

	pd.Touch(0x4000, true)
	assert.True(t, pd.IsDirty(0x4000))
}

func TestMethodsPanicWithoutLock(t *testing.T) {
	pd := New()
	assert.Panics(t, func() { pd.Resident(addr.VAddr(0x1000)) })
}

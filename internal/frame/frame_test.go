package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmkern/internal/addr"
	"vmkern/internal/errs"
)

// fakeOwner is a minimal frame.Owner stand-in: it records which pages were
// touched and lets a test script the accessed bit sequence the
// second-chance clock observes.
type fakeOwner struct {
	accessed map[addr.VAddr]bool
	dirty    map[addr.VAddr]bool
	cleared  []addr.VAddr
	evicted  []addr.VAddr
}

func newFakeOwner() *fakeOwner {
	return &fakeOwner{accessed: map[addr.VAddr]bool{}, dirty: map[addr.VAddr]bool{}}
}

func (f *fakeOwner) Accessed(va addr.VAddr) bool    { return f.accessed[va] }
func (f *fakeOwner) ClearAccessed(va addr.VAddr)    { f.accessed[va] = false }
func (f *fakeOwner) IsDirty(va addr.VAddr) bool     { return f.dirty[va] }
func (f *fakeOwner) ClearMapping(va addr.VAddr)     { f.cleared = append(f.cleared, va) }
func (f *fakeOwner) Evict(va addr.VAddr, dirty bool) error {
	f.evicted = append(f.evicted, va)
	return nil
}

func TestAllocAndFree(t *testing.T) {
	tbl := New(2)
	owner := newFakeOwner()

	id, errno := tbl.Alloc(owner, 0x1000)
	require.Equal(t, errs.OK, errno)
	assert.Len(t, tbl.Data(id), addr.PageSize)

	va, o, ok := tbl.Lookup(id)
	assert.True(t, ok)
	assert.Equal(t, addr.VAddr(0x1000), va)
	assert.Same(t, owner, o)

	tbl.Free(id)
	_, _, ok = tbl.Lookup(id)
	assert.False(t, ok)
}

func TestDoubleFreePanics(t *testing.T) {
	tbl := New(1)
	id, _ := tbl.Alloc(newFakeOwner(), 0x1000)
	tbl.Free(id)
	assert.Panics(t, func() { tbl.Free(id) })
}

func TestSetEvictableOnFreeFramePanics(t *testing.T) {
	tbl := New(1)
	assert.Panics(t, func() { tbl.SetEvictable(0, true) })
}

func TestEvictionPicksNonAccessedEvictableFrame(t *testing.T) {
	tbl := New(1)
	owner := newFakeOwner()

	id, _ := tbl.Alloc(owner, 0x1000)
	tbl.SetEvictable(id, true)

	id2, errno := tbl.Alloc(owner, 0x2000)
	require.Equal(t, errs.OK, errno)
	assert.Equal(t, id, id2)
	assert.Equal(t, []addr.VAddr{0x1000}, owner.cleared)
	assert.Equal(t, []addr.VAddr{0x1000}, owner.evicted)
	assert.Equal(t, uint64(1), tbl.Evictions())
}

func TestSecondChanceClockSkipsAccessedFrame(t *testing.T) {
	tbl := New(2)
	owner := newFakeOwner()

	idA, _ := tbl.Alloc(owner, 0x1000)
	tbl.SetEvictable(idA, true)

	idB, _ := tbl.Alloc(owner, 0x2000)
	tbl.SetEvictable(idB, true)
	owner.accessed[0x2000] = true

	id3, errno := tbl.Alloc(owner, 0x3000)
	require.Equal(t, errs.OK, errno)

	assert.False(t, owner.accessed[0x2000], "accessed bit should have been cleared on first pass")
	assert.Contains(t, owner.evicted, addr.VAddr(0x1000))
	assert.NotContains(t, owner.evicted, addr.VAddr(0x2000))
	_ = id3
}

func TestMMUFrameConversionRoundTrips(t *testing.T) {
	id := ID(42)
	assert.Equal(t, id, FromMMUFrame(ToMMUFrame(id)))
}

package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmkern/internal/addr"
	"vmkern/internal/errs"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	d := New(4)
	assert.Equal(t, 0, d.Used())

	i, errno := d.Alloc()
	require.Equal(t, errs.OK, errno)
	assert.Equal(t, 1, d.Used())

	page := make([]byte, addr.PageSize)
	for j := range page {
		page[j] = byte(j)
	}
	require.Equal(t, errs.OK, d.Write(i, page))

	out := make([]byte, addr.PageSize)
	require.Equal(t, errs.OK, d.Read(i, out))
	assert.Equal(t, page, out)

	d.Free(i)
	assert.Equal(t, 0, d.Used())
}

func TestAllocExhaustion(t *testing.T) {
	d := New(2)
	_, e1 := d.Alloc()
	_, e2 := d.Alloc()
	require.Equal(t, errs.OK, e1)
	require.Equal(t, errs.OK, e2)

	_, e3 := d.Alloc()
	assert.Equal(t, errs.ENOSPC, e3)
}

func TestWriteWrongSizeRejected(t *testing.T) {
	d := New(1)
	i, _ := d.Alloc()
	assert.Equal(t, errs.EINVAL, d.Write(i, []byte{1, 2, 3}))
}

func TestUseOfUnallocatedSlotPanics(t *testing.T) {
	d := New(1)
	assert.Panics(t, func() { d.Free(0) })
}

func TestOutOfRangeSlotPanics(t *testing.T) {
	d := New(1)
	assert.Panics(t, func() { d.Free(5) })
}

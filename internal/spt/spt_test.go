package spt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vmkern/internal/addr"
)

func TestInsertSearchRemove(t *testing.T) {
	tbl := New()
	e := &Entry{PageAddr: 0x1000, Purpose: ForFile, ReadBytes: addr.PageSize, ZeroBytes: 0}
	tbl.Insert(e)

	got, ok := tbl.Search(0x1abc)
	assert.True(t, ok)
	assert.Same(t, e, got)

	tbl.Remove(0x1000)
	_, ok = tbl.Search(0x1000)
	assert.False(t, ok)
}

func TestInsertUnalignedPanics(t *testing.T) {
	tbl := New()
	assert.Panics(t, func() {
		tbl.Insert(&Entry{PageAddr: 0x1001, ReadBytes: addr.PageSize})
	})
}

func TestInsertBadByteSplitPanics(t *testing.T) {
	tbl := New()
	assert.Panics(t, func() {
		tbl.Insert(&Entry{PageAddr: 0x1000, ReadBytes: 10, ZeroBytes: 10})
	})
}

func TestDuplicateInsertPanics(t *testing.T) {
	tbl := New()
	tbl.Insert(&Entry{PageAddr: 0x1000, ReadBytes: addr.PageSize})
	assert.Panics(t, func() {
		tbl.Insert(&Entry{PageAddr: 0x1000, ReadBytes: addr.PageSize})
	})
}

func TestRangeVisitsEveryEntry(t *testing.T) {
	tbl := New()
	tbl.Insert(&Entry{PageAddr: 0x1000, ReadBytes: addr.PageSize})
	tbl.Insert(&Entry{PageAddr: 0x2000, ReadBytes: addr.PageSize})

	seen := map[addr.VAddr]bool{}
	tbl.Range(func(e *Entry) bool {
		seen[e.PageAddr] = true
		return true
	})
	assert.Len(t, seen, 2)
}

func TestRangeStopsEarly(t *testing.T) {
	tbl := New()
	tbl.Insert(&Entry{PageAddr: 0x1000, ReadBytes: addr.PageSize})
	tbl.Insert(&Entry{PageAddr: 0x2000, ReadBytes: addr.PageSize})

	count := 0
	tbl.Range(func(e *Entry) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestPurposeString(t *testing.T) {
	assert.Equal(t, "file", ForFile.String())
	assert.Equal(t, "stack", ForStack.String())
	assert.Equal(t, "mmap", ForMmap.String())
}

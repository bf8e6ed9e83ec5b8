package fdtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmkern/internal/errs"
	"vmkern/internal/vfs"
)

func newFile() *vfs.File {
	fs := vfs.New()
	fs.Lock()
	fs.Create("x", 0)
	f, _ := fs.Open("x")
	fs.Unlock()
	return f
}

func TestOpenStartsAtFirstFreeSlot(t *testing.T) {
	tbl := New()
	fd, errno := tbl.Open(newFile())
	require.Equal(t, errs.OK, errno)
	assert.Equal(t, 2, fd)
}

func TestGetRejectsReservedAndEmptySlots(t *testing.T) {
	tbl := New()
	_, errno := tbl.Get(Stdin)
	assert.Equal(t, errs.EBADF, errno)
	_, errno = tbl.Get(Stdout)
	assert.Equal(t, errs.EBADF, errno)
	_, errno = tbl.Get(2)
	assert.Equal(t, errs.EBADF, errno)
}

func TestCloseThenGetFails(t *testing.T) {
	tbl := New()
	fd, _ := tbl.Open(newFile())
	require.Equal(t, errs.OK, tbl.Close(fd))
	_, errno := tbl.Get(fd)
	assert.Equal(t, errs.EBADF, errno)
}

func TestTableFillsUpAndRejects(t *testing.T) {
	tbl := New()
	var last errs.Errno
	for i := 0; i < 200; i++ {
		_, last = tbl.Open(newFile())
		if last != errs.OK {
			break
		}
	}
	assert.Equal(t, errs.EMFILE, last)
}

func TestRangeVisitsOnlyOpenDescriptors(t *testing.T) {
	tbl := New()
	fd1, _ := tbl.Open(newFile())
	fd2, _ := tbl.Open(newFile())
	tbl.Close(fd1)

	seen := map[int]bool{}
	tbl.Range(func(fd int, f *vfs.File) { seen[fd] = true })
	assert.False(t, seen[fd1])
	assert.True(t, seen[fd2])
}

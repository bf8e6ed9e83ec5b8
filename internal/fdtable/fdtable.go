// Package fdtable implements the File-Descriptor Table (spec section 3 /
// 4.6): a per-process fixed-width array of open file handles, slots 0 and
// 1 reserved for stdin/stdout. It is a direct generalization of biscuit's
// fd.Fd_t/fd.Copyfd/fd.Close_panic from a polymorphic Fdops_i-backed
// descriptor to the fixed 130-slot array spec section 3 specifies.
package fdtable

import (
	"vmkern/internal/config"
	"vmkern/internal/errs"
	"vmkern/internal/vfs"
)

// Reserved descriptor numbers (spec section 3).
const (
	Stdin  = 0
	Stdout = 1

	firstFree = 2
)

// Table is one process's file-descriptor table.
type Table struct {
	slots []*vfs.File
}

// New constructs a table with every non-reserved slot empty.
func New() *Table {
	return &Table{slots: make([]*vfs.File, config.FDTableSize)}
}

// Open scans slots [2..N) for the first free one and installs f there
// (the OPEN syscall, spec section 4.6).
func (t *Table) Open(f *vfs.File) (int, errs.Errno) {
	for fd := firstFree; fd < len(t.slots); fd++ {
		if t.slots[fd] == nil {
			t.slots[fd] = f
			return fd, errs.OK
		}
	}
	return 0, errs.EMFILE
}

// Get returns the file installed at fd, rejecting the reserved slots and
// any fd outside the table or currently empty.
func (t *Table) Get(fd int) (*vfs.File, errs.Errno) {
	if fd < firstFree || fd >= len(t.slots) || t.slots[fd] == nil {
		return nil, errs.EBADF
	}
	return t.slots[fd], errs.OK
}

// Close closes and nulls the slot at fd. An invalid fd is a caller error
// the dispatcher turns into process termination (spec section 4.6's CLOSE
// row).
func (t *Table) Close(fd int) errs.Errno {
	if fd < firstFree || fd >= len(t.slots) || t.slots[fd] == nil {
		return errs.EBADF
	}
	t.slots[fd].Close()
	t.slots[fd] = nil
	return errs.OK
}

// Range calls fn for every open (non-reserved) descriptor, for process
// exit's teardown walk.
func (t *Table) Range(fn func(fd int, f *vfs.File)) {
	for fd := firstFree; fd < len(t.slots); fd++ {
		if t.slots[fd] != nil {
			fn(fd, t.slots[fd])
		}
	}
}

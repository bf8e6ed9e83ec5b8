// Package spt implements the Supplemental Page Table (spec section 4.3):
// the per-process mapping from user virtual page to page descriptor. It
// generalizes the page-descriptor lookup and fault-trigger pattern of
// biscuit's vm.Vm_t.Userdmap8_inner (vm/as.go) from biscuit's
// range-based Vmregion_t down to the one-entry-per-page granularity spec
// section 4.3 specifies.
package spt

import (
	"fmt"
	"sync"

	"vmkern/internal/addr"
	"vmkern/internal/frame"
	"vmkern/internal/swap"
)

// Purpose classifies why a page descriptor exists (spec section 3).
type Purpose int

const (
	ForFile Purpose = iota
	ForStack
	ForMmap
)

func (p Purpose) String() string {
	switch p {
	case ForFile:
		return "file"
	case ForStack:
		return "stack"
	case ForMmap:
		return "mmap"
	default:
		return "unknown"
	}
}

// File is the narrow slice of a filesystem file an SPT entry needs: read
// its backing bytes at a fault-in, write them back at eviction or munmap.
// Satisfied by *vfs.File; kept narrow here so spt does not import vfs.
type File interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

// Entry is one page descriptor (spec section 3).
type Entry struct {
	PageAddr addr.VAddr
	Purpose  Purpose

	File        File
	Ofs         int64
	ReadBytes   int
	ZeroBytes   int
	IsWritable  bool

	IsSwapped bool
	SwapSlot  swap.SlotIndex

	FrameID  frame.ID
	Resident bool

	// MmapID is a non-owning tag back to the mmap region that created this
	// entry, cleared on removal. Per spec section 9's note on breaking the
	// mmap<->SPT cycle, the region's page list is the owning reference;
	// this is only a tag, not stored as a pointer back to the region to
	// avoid an import cycle between spt and mmapreg.
	MmapID int
}

// Table is one process's supplemental page table.
type Table struct {
	mu      sync.Mutex
	entries map[addr.VAddr]*Entry
}

// New constructs an empty table.
func New() *Table {
	return &Table{entries: make(map[addr.VAddr]*Entry)}
}

// Insert adds e, keyed by e.PageAddr. Inserting over an existing key is a
// programming error (spec section 4.3) and panics rather than silently
// overwriting or erroring, matching biscuit's posture on invariant
// breaches elsewhere in the teacher.
func (t *Table) Insert(e *Entry) {
	if !addr.Aligned(e.PageAddr) {
		panic("spt: insert of unaligned page")
	}
	if e.ReadBytes+e.ZeroBytes != addr.PageSize {
		panic("spt: read_bytes + zero_bytes must equal PAGE_SIZE")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[e.PageAddr]; ok {
		panic(fmt.Sprintf("spt: duplicate insert of 0x%x", uint32(e.PageAddr)))
	}
	t.entries[e.PageAddr] = e
}

// Search returns the entry for vaddr's containing page, if any.
func (t *Table) Search(vaddr addr.VAddr) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[addr.PageRoundDown(vaddr)]
	return e, ok
}

// Remove deletes the entry for vaddr, if present.
func (t *Table) Remove(vaddr addr.VAddr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, addr.PageRoundDown(vaddr))
}

// Range calls fn for every entry, in no particular order, stopping early
// if fn returns false. Used for process teardown (free every resident
// frame, release every swap slot) and for the testable invariants in spec
// section 8.
func (t *Table) Range(fn func(*Entry) bool) {
	t.mu.Lock()
	entries := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.Unlock()

	for _, e := range entries {
		if !fn(e) {
			return
		}
	}
}

// Package mmu stands in for the hardware page-directory primitive spec
// section 6 treats as an opaque external interface
// (install/clear/query-dirty/query-accessed). Because this module runs as
// ordinary user-space Go rather than kernel-mode code with a real CR3
// register, PageDirectory is a software-walked page table keyed by virtual
// page, generalizing biscuit's mem.Pmap_t (a page-table page of Pa_t
// entries) and the Lock_pmap/Unlock_pmap locking discipline in vm.Vm_t —
// the same shape the riscv and wazero software-MMU files in the retrieved
// pack use for a map-based page table with explicit dirty/accessed
// bookkeeping.
package mmu

import (
	"fmt"
	"sync"

	"vmkern/internal/addr"
)

// Frame identifies a physical frame as the frame table hands it out. It is
// opaque to the MMU: installing a mapping only records which frame backs a
// page, never the frame's contents.
type Frame uint32

type pte struct {
	frame    Frame
	writable bool
	dirty    bool
	accessed bool
}

// PageDirectory is one process's page table. The zero value is not usable;
// construct with New.
type PageDirectory struct {
	mu      sync.Mutex
	entries map[addr.VAddr]*pte

	// pgfltaken mirrors Vm_t.pgfltaken: it flags that the address-space
	// lock is held on behalf of an in-progress page-fault resolution, so
	// Lockassert can catch a caller that forgot to take it.
	pgfltaken bool
}

// New constructs an empty page directory.
func New() *PageDirectory {
	return &PageDirectory{entries: make(map[addr.VAddr]*pte)}
}

// Lock acquires the address-space mutex and marks a fault as in progress,
// mirroring Vm_t.Lock_pmap.
func (pd *PageDirectory) Lock() {
	pd.mu.Lock()
	pd.pgfltaken = true
}

// Unlock releases the address-space mutex, mirroring Vm_t.Unlock_pmap.
func (pd *PageDirectory) Unlock() {
	pd.pgfltaken = false
	pd.mu.Unlock()
}

// LockAssert panics if the address-space lock is not held, mirroring
// Vm_t.Lockassert_pmap. Kernel code that manipulates a page table without
// holding the lock is a programming error, not a recoverable fault.
func (pd *PageDirectory) LockAssert() {
	if !pd.pgfltaken {
		panic("mmu: page directory lock must be held")
	}
}

// Install maps vpage to frame with the given writable bit. It panics if
// vpage is already mapped: the caller must Clear first, which is the
// invariant the fault resolver and evictor both uphold (spec invariant 3 —
// no physical frame referenced by two SPT entries implies no virtual page
// is ever double-installed without an intervening clear).
func (pd *PageDirectory) Install(vpage addr.VAddr, frame Frame, writable bool) {
	pd.LockAssert()
	if !addr.Aligned(vpage) {
		panic("mmu: install of unaligned page")
	}
	if _, ok := pd.entries[vpage]; ok {
		panic(fmt.Sprintf("mmu: double install of 0x%x", uint32(vpage)))
	}
	pd.entries[vpage] = &pte{frame: frame, writable: writable}
}

// Clear removes the mapping for vpage, if any. Clearing an unmapped page
// is a no-op, matching the MMU's clear(pd, vpage) contract in spec
// section 6.
func (pd *PageDirectory) Clear(vpage addr.VAddr) {
	pd.LockAssert()
	delete(pd.entries, vpage)
}

// GetFrame returns the frame backing vpage, if resident.
func (pd *PageDirectory) GetFrame(vpage addr.VAddr) (Frame, bool) {
	pd.LockAssert()
	e, ok := pd.entries[vpage]
	if !ok {
		return 0, false
	}
	return e.frame, true
}

// Resident reports whether vpage currently has a mapping installed.
func (pd *PageDirectory) Resident(vpage addr.VAddr) bool {
	pd.LockAssert()
	_, ok := pd.entries[vpage]
	return ok
}

// Writable reports whether the mapping for vpage, if any, permits writes.
func (pd *PageDirectory) Writable(vpage addr.VAddr) bool {
	pd.LockAssert()
	e, ok := pd.entries[vpage]
	return ok && e.writable
}

// IsDirty reports the dirty bit for vpage's mapping.
func (pd *PageDirectory) IsDirty(vpage addr.VAddr) bool {
	pd.LockAssert()
	e, ok := pd.entries[vpage]
	return ok && e.dirty
}

// IsAccessed reports the accessed bit for vpage's mapping.
func (pd *PageDirectory) IsAccessed(vpage addr.VAddr) bool {
	pd.LockAssert()
	e, ok := pd.entries[vpage]
	return ok && e.accessed
}

// ClearAccessed resets the accessed bit, as the second-chance clock does
// when it passes over a referenced frame (spec section 4.2, step 1).
func (pd *PageDirectory) ClearAccessed(vpage addr.VAddr) {
	pd.LockAssert()
	if e, ok := pd.entries[vpage]; ok {
		e.accessed = false
	}
}

// Touch simulates the hardware setting the accessed bit, and the dirty bit
// on a write, as a side effect of every user memory access this module
// makes on a resident page. Real hardware sets these bits on every load or
// store; here the copy-in/copy-out and fault-resolution paths call Touch
// explicitly wherever they stand in for that hardware behavior.
func (pd *PageDirectory) Touch(vpage addr.VAddr, write bool) {
	pd.LockAssert()
	e, ok := pd.entries[vpage]
	if !ok {
		return
	}
	e.accessed = true
	if write {
		e.dirty = true
	}
}

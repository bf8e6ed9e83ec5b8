// Package aspace bundles the per-process address-space state — the
// supplemental page table, the software page directory, and the mmap
// registry — the way biscuit's vm.Vm_t bundles Vmregion, Pmap and P_pmap
// behind one mutex. Splitting it out of proc keeps the fault resolver
// (which must drive all three without knowing about file descriptors,
// pids, or wait/exec bookkeeping) from importing proc, avoiding an import
// cycle between proc and fault.
package aspace

import (
	"vmkern/internal/addr"
	"vmkern/internal/mmapreg"
	"vmkern/internal/mmu"
	"vmkern/internal/spt"
)

// AddressSpace is one process's view of L4 (SPT), L1 (page directory) and
// L5 (mmap registry).
type AddressSpace struct {
	SPT   *spt.Table
	PD    *mmu.PageDirectory
	Mmaps *mmapreg.Registry

	// Esp is the saved user stack pointer, read from the trap frame on a
	// user-mode fault and updated by the stack-growth heuristic (spec
	// section 4.5, step 3; spec section 9's note that this is a policy
	// knob, not a correctness invariant).
	Esp addr.VAddr
}

// New constructs an empty address space.
func New() *AddressSpace {
	return &AddressSpace{
		SPT:   spt.New(),
		PD:    mmu.New(),
		Mmaps: mmapreg.New(),
	}
}

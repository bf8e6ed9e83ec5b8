// Package fault implements the Fault Resolver (spec section 4.5): it
// classifies a faulting address and drives the frame table, swap device,
// supplemental page table and mmap registry to make the page present. It
// is a direct generalization of biscuit's vm.Sys_pgfault — the guard-page
// check, the PTE_W write-protection check, and the pin-across-install
// discipline all come from that function — plus the stack-growth branch
// spec section 4.5 step 3 adds, which this module supplements in
// biscuit's idiom (pin, zero-fill, install, mark evictable).
//
// Resolve is also where the frame.Owner adapter lives that lets the
// global Frame Table drive eviction of a page belonging to a particular
// process without importing this process's address-space types: victim
// wraps one (kernel, address-space, page) triple and implements the
// second-chance clock's accessed/dirty/clear/evict callbacks by replaying
// spec section 4.2's eviction algorithm.
package fault

import (
	"vmkern/internal/addr"
	"vmkern/internal/aspace"
	"vmkern/internal/errs"
	"vmkern/internal/frame"
	"vmkern/internal/kernel"
	"vmkern/internal/klog"
	"vmkern/internal/spt"
)

// Resolve classifies and resolves a fault at va in as, per the decision
// tree of spec section 4.5. esp is the user stack pointer at the time of
// the fault (from the trap frame, or a saved per-process slot for a
// kernel-mode fault). It returns errs.OK on success, or errs.EFAULT (bad
// address, stack limit, write to a read-only page) or errs.EIO (short read
// while loading the page from its file) when the caller must terminate the
// faulting process with status -1.
func Resolve(k *kernel.Kernel, as *aspace.AddressSpace, va addr.VAddr, write, user bool, esp addr.VAddr) errs.Errno {
	k.CountFault()

	if va == 0 || va >= addr.PhysBase {
		klog.Fault(uint32(va), write, user, "bad address")
		return errs.EFAULT
	}

	vp := addr.PageRoundDown(va)

	as.PD.Lock()
	defer as.PD.Unlock()

	entry, ok := as.SPT.Search(vp)
	if !ok {
		return growStack(k, as, va, vp, esp)
	}

	if write && !entry.IsWritable {
		klog.Fault(uint32(va), write, user, "write to read-only page")
		return errs.EFAULT
	}

	// A fault delivered for an already-resident page is not_present's
	// complement: nothing to page in. This is the ordinary case for a
	// syscall-boundary touch racing the real hardware fault (the page was
	// faulted in by an earlier touch in the same copy), so it is not an
	// error.
	if entry.Resident {
		return errs.OK
	}

	switch {
	case !entry.IsSwapped:
		return faultInFromFile(k, as, entry, esp)
	default:
		return faultInFromSwap(k, as, entry, esp)
	}
}

// growStack implements spec section 4.5 step 3: a miss within the stack
// growth heuristic's window allocates a fresh zero-filled stack page.
func growStack(k *kernel.Kernel, as *aspace.AddressSpace, va, vp, esp addr.VAddr) errs.Errno {
	if va <= addr.StackFloor() {
		klog.Fault(uint32(va), false, true, "stack limit exceeded")
		return errs.EFAULT
	}
	if esp != 0 && int64(va)+addr.StackGrowthSlack < int64(esp) {
		klog.Fault(uint32(va), false, true, "too far below esp")
		return errs.EFAULT
	}

	id, errno := k.Frames.Alloc(newVictim(k, as), vp)
	if errno != errs.OK {
		return errno
	}
	zero(k.Frames.Data(id))

	as.PD.Install(vp, frame.ToMMUFrame(id), true)
	k.Frames.SetEvictable(id, true)

	as.SPT.Insert(&spt.Entry{
		PageAddr:   vp,
		Purpose:    spt.ForStack,
		IsWritable: true,
		ReadBytes:  0,
		ZeroBytes:  addr.PageSize,
		FrameID:    id,
		Resident:   true,
	})

	if esp != 0 && esp > vp {
		as.Esp = vp
	}

	klog.Fault(uint32(va), false, true, "stack grown")
	return errs.OK
}

// faultInFromFile handles a miss on a FOR_FILE or FOR_MMAP page that is
// not swapped (spec section 4.5: "not swapped" branch) and the rare
// FOR_STACK race where an entry exists but was never installed.
func faultInFromFile(k *kernel.Kernel, as *aspace.AddressSpace, e *spt.Entry, esp addr.VAddr) errs.Errno {
	id, errno := k.Frames.Alloc(newVictim(k, as), e.PageAddr)
	if errno != errs.OK {
		return errno
	}
	buf := k.Frames.Data(id)

	if e.Purpose != spt.ForStack && e.File != nil && e.ReadBytes > 0 {
		k.FS.Lock()
		n, ioerr := e.File.ReadAt(buf[:e.ReadBytes], e.Ofs)
		k.FS.Unlock()
		if ioerr != nil || n != e.ReadBytes {
			k.Frames.Free(id)
			klog.Fault(uint32(e.PageAddr), false, true, "short read during fault-in")
			return errs.EIO
		}
	}
	zero(buf[e.ReadBytes:])

	as.PD.Install(e.PageAddr, frame.ToMMUFrame(id), e.IsWritable)
	k.Frames.SetEvictable(id, true)
	e.FrameID = id
	e.Resident = true
	if e.Purpose == spt.ForStack && esp != 0 && esp > e.PageAddr {
		as.Esp = e.PageAddr
	}

	klog.Fault(uint32(e.PageAddr), false, true, "loaded "+e.Purpose.String())
	return errs.OK
}

// faultInFromSwap handles a miss on a page currently resident in a swap
// slot, for any purpose (spec section 4.5's two "swapped" branches).
func faultInFromSwap(k *kernel.Kernel, as *aspace.AddressSpace, e *spt.Entry, esp addr.VAddr) errs.Errno {
	id, errno := k.Frames.Alloc(newVictim(k, as), e.PageAddr)
	if errno != errs.OK {
		return errno
	}
	buf := k.Frames.Data(id)

	if errno := k.Swap.Read(e.SwapSlot, buf); errno != errs.OK {
		k.Frames.Free(id)
		return errno
	}
	k.Swap.Free(e.SwapSlot)
	e.IsSwapped = false

	as.PD.Install(e.PageAddr, frame.ToMMUFrame(id), e.IsWritable)
	k.Frames.SetEvictable(id, true)
	e.FrameID = id
	e.Resident = true
	if e.Purpose == spt.ForStack && esp != 0 && esp > e.PageAddr {
		as.Esp = e.PageAddr
	}

	klog.Fault(uint32(e.PageAddr), false, true, "swapped in "+e.Purpose.String())
	return errs.OK
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// victim adapts one (kernel, address space) pair to frame.Owner so the
// global frame table can evict a page belonging to this address space
// without importing spt, mmu, or aspace itself (spec section 9: the
// frame table's page_addr is a breakable hint, resolved back through
// whoever owns it).
type victim struct {
	k  *kernel.Kernel
	as *aspace.AddressSpace
}

func newVictim(k *kernel.Kernel, as *aspace.AddressSpace) frame.Owner {
	return &victim{k: k, as: as}
}

func (v *victim) Accessed(vaddr addr.VAddr) bool {
	return v.as.PD.IsAccessed(vaddr)
}

func (v *victim) ClearAccessed(vaddr addr.VAddr) {
	v.as.PD.ClearAccessed(vaddr)
}

func (v *victim) IsDirty(vaddr addr.VAddr) bool {
	return v.as.PD.IsDirty(vaddr)
}

func (v *victim) ClearMapping(vaddr addr.VAddr) {
	v.as.PD.Clear(vaddr)
}

// Evict performs spec section 4.2 step 3: decide the spill destination by
// the victim's SPT entry purpose, and step 4: mark the entry non-resident.
// The frame is already pinned and unmapped when this runs; the frame
// table itself has dropped its lock around this call (spec section 5: an
// eviction that writes back must drop the frame-table lock and reacquire
// after I/O).
func (v *victim) Evict(vaddr addr.VAddr, dirty bool) error {
	e, ok := v.as.SPT.Search(vaddr)
	if !ok {
		panic("fault: eviction of page with no SPT entry")
	}
	buf := v.k.Frames.Data(e.FrameID)

	switch e.Purpose {
	case spt.ForMmap:
		if dirty {
			v.k.FS.Lock()
			e.File.WriteAt(buf[:e.ReadBytes], e.Ofs)
			v.k.FS.Unlock()
			klog.Evict(uint32(vaddr), "mmap", true, "writeback")
		} else {
			klog.Evict(uint32(vaddr), "mmap", false, "dropped")
		}

	case spt.ForFile:
		if e.IsWritable && dirty {
			slot, errno := v.k.Swap.Alloc()
			if errno != errs.OK {
				return errno
			}
			v.k.Swap.Write(slot, buf)
			e.IsSwapped = true
			e.SwapSlot = slot
			klog.Evict(uint32(vaddr), "file", true, "swap")
		} else {
			klog.Evict(uint32(vaddr), "file", false, "dropped")
		}

	case spt.ForStack:
		slot, errno := v.k.Swap.Alloc()
		if errno != errs.OK {
			return errno
		}
		v.k.Swap.Write(slot, buf)
		e.IsSwapped = true
		e.SwapSlot = slot
		klog.Evict(uint32(vaddr), "stack", dirty, "swap")
	}

	e.FrameID = 0
	e.Resident = false
	return nil
}

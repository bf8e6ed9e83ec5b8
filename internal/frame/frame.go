// Package frame implements the Frame Table (spec section 4.2): the global
// registry of physical user frames, allocation, pinning, and the
// second-chance clock eviction policy. It generalizes biscuit's
// mem.Physmem_t (a slice of Physpg_t records with a free-list threaded
// through nexti) from a refcounted allocator to the pinned/evictable
// bookkeeping spec section 4.2 specifies.
//
// The table holds the simulated physical memory itself — each frame's
// backing bytes — because this module has no real hardware page to hand
// out; Data returns the mutable slice the fault resolver reads a file into
// or zero-fills, the same role biscuit's mem.Dmaplen plays for a physical
// address.
//
// The table does not know about supplemental page tables, purposes, or
// files: eviction delegates every purpose-specific decision to the Owner
// recorded at allocation time, which is how spec section 9's "Frame
// Table's page_addr is a breakable hint invalidated under the frame-table
// lock" is kept true without an import cycle back to the per-process
// address space.
package frame

import (
	"sync"

	"vmkern/internal/addr"
	"vmkern/internal/errs"
	"vmkern/internal/mmu"
)

// ID identifies a physical frame.
type ID uint32

// Owner is implemented by whatever owns a frame's virtual mapping — in
// practice an adapter over a process's address space — so the frame table
// can drive eviction without importing the supplemental page table or MMU
// packages for anything beyond the Frame type.
type Owner interface {
	// Accessed reports the hardware accessed bit for vaddr's mapping.
	Accessed(vaddr addr.VAddr) bool
	// ClearAccessed resets the accessed bit (second-chance clock, spec
	// section 4.2 step 1).
	ClearAccessed(vaddr addr.VAddr)
	// IsDirty reports the hardware dirty bit for vaddr's mapping.
	IsDirty(vaddr addr.VAddr) bool
	// ClearMapping removes the MMU mapping for vaddr so user writes cannot
	// race the spill (spec section 4.2 step 2).
	ClearMapping(vaddr addr.VAddr)
	// Evict performs the purpose-specific spill (spec section 4.2 step 3)
	// and marks the owner's page descriptor non-resident (step 4). The
	// frame is still pinned and still holds the page's last contents when
	// Evict is called.
	Evict(vaddr addr.VAddr, dirty bool) error
}

type record struct {
	inUse     bool
	evictable bool
	vaddr     addr.VAddr
	owner     Owner
}

// Table is the kernel-wide frame pool singleton (spec section 9).
type Table struct {
	mu      sync.Mutex
	records []record
	pages   [][addr.PageSize]byte
	free    []ID // stack of free frame indices
	hand    int  // clock hand for eviction

	evictions uint64
}

// New constructs a frame table with the given number of physical frames.
func New(pages int) *Table {
	t := &Table{
		records: make([]record, pages),
		pages:   make([][addr.PageSize]byte, pages),
		free:    make([]ID, pages),
	}
	for i := range t.free {
		t.free[i] = ID(pages - 1 - i)
	}
	return t
}

// Data returns the mutable backing bytes of frame id.
func (t *Table) Data(id ID) []byte {
	return t.pages[id][:]
}

// Alloc returns a frame owned by owner for vaddr, evicting a victim via the
// second-chance clock if the pool is empty. The frame is allocated pinned
// (not evictable); the caller must call SetEvictable(id, true) once it has
// finished programming the MMU (spec invariant 6).
func (t *Table) Alloc(owner Owner, vaddr addr.VAddr) (ID, errs.Errno) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.popFree()
	if !ok {
		var err error
		id, err = t.evictOneLocked()
		if err != nil {
			panic("frame: eviction failed: " + err.Error())
		}
	}

	t.records[id] = record{inUse: true, evictable: false, vaddr: vaddr, owner: owner}
	return id, errs.OK
}

// SetEvictable flips a frame's pinned state. The fault resolver upholds
// invariant 6 by calling this only after the MMU mapping is installed; the
// evictor pins its victim directly under the table lock instead.
func (t *Table) SetEvictable(id ID, evictable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.records[id].inUse {
		panic("frame: SetEvictable on free frame")
	}
	t.records[id].evictable = evictable
}

// Free releases a frame back to the pool, clearing its record. This is
// spec section 4.4's (and process-exit's) path for reclaiming a resident
// page without spilling it anywhere.
func (t *Table) Free(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.records[id].inUse {
		panic("frame: double free")
	}
	t.records[id] = record{}
	t.free = append(t.free, id)
}

// Lookup returns the vaddr/owner recorded for a frame, the structural
// lookup spec section 4.2 calls find_frame.
func (t *Table) Lookup(id ID) (addr.VAddr, Owner, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.records[id]
	return r.vaddr, r.owner, r.inUse
}

// Evictions returns the number of evictions performed so far, tapped by
// internal/diag for the pprof profile.
func (t *Table) Evictions() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evictions
}

// Len reports the total pool size.
func (t *Table) Len() int {
	return len(t.records)
}

func (t *Table) popFree() (ID, bool) {
	if len(t.free) == 0 {
		return 0, false
	}
	id := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	return id, true
}

// evictOneLocked runs the second-chance clock over the table and returns a
// freed frame id. Callers must hold t.mu.
func (t *Table) evictOneLocked() (ID, error) {
	n := len(t.records)
	if n == 0 {
		return 0, errs.ENOMEM
	}

	scanned := 0
	for {
		t.hand = (t.hand + 1) % n
		r := &t.records[t.hand]
		if !r.inUse || !r.evictable {
			scanned++
			if scanned > 2*n {
				return 0, errs.ENOMEM
			}
			continue
		}
		if r.owner.Accessed(r.vaddr) {
			r.owner.ClearAccessed(r.vaddr)
			scanned++
			if scanned > 2*n {
				return 0, errs.ENOMEM
			}
			continue
		}
		break
	}

	id := ID(t.hand)
	r := &t.records[id]
	r.evictable = false // pin the victim across the spill (step 2)
	dirty := r.owner.IsDirty(r.vaddr)
	r.owner.ClearMapping(r.vaddr)

	// The spill may block on filesystem or swap I/O; lock order (spec
	// section 5) requires dropping the frame-table lock first.
	owner, vaddr := r.owner, r.vaddr
	t.mu.Unlock()
	err := owner.Evict(vaddr, dirty)
	t.mu.Lock()

	if err != nil {
		return 0, err
	}

	t.evictions++
	t.records[id] = record{}
	return id, nil
}

// ToMMUFrame adapts a frame ID to the Frame type mmu.PageDirectory.Install
// expects, keeping the numeric representation in one place.
func ToMMUFrame(id ID) mmu.Frame { return mmu.Frame(id) }

// FromMMUFrame is the inverse of ToMMUFrame.
func FromMMUFrame(f mmu.Frame) ID { return ID(f) }

// Package swap implements the Swap Device (spec section 4.1): a
// fixed-size backing store partitioned into page-sized slots, with
// first-fit allocation under a short lock. The bitmap scan is grounded on
// biscuit's mem/dmap.go style of manual bit manipulation (shl, pgbits); no
// bitset library appears anywhere in the retrieved pack, so a hand-rolled
// []uint64 bitmap with math/bits for population counts is the grounded,
// justified stand-in for one (see DESIGN.md).
//
// The real block device and sector-vs-page geometry (spec section 4.1's
// "PAGE_SIZE / sector_size sectors per slot") are out of scope (spec
// section 1): Device's backing store is an in-memory slice of pages,
// which is sufficient to exercise every invariant and round-trip property
// in spec sections 3 and 8.
package swap

import (
	"math/bits"
	"sync"

	"vmkern/internal/addr"
	"vmkern/internal/errs"
)

// SlotIndex identifies one page-sized slot on the swap device.
type SlotIndex int

// Device is the kernel-wide swap partition singleton (spec section 9).
type Device struct {
	mu     sync.Mutex
	bitmap []uint64
	slots  int
	store  [][addr.PageSize]byte
}

// New allocates a swap device with the given number of slots.
func New(slots int) *Device {
	return &Device{
		bitmap: make([]uint64, (slots+63)/64),
		slots:  slots,
		store:  make([][addr.PageSize]byte, slots),
	}
}

// Alloc reserves a free slot, scanning first-fit, and returns ENOSPC if the
// device is full.
func (d *Device) Alloc() (SlotIndex, errs.Errno) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for word := range d.bitmap {
		if d.bitmap[word] == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^d.bitmap[word])
		idx := word*64 + bit
		if idx >= d.slots {
			break
		}
		d.bitmap[word] |= 1 << uint(bit)
		return SlotIndex(idx), errs.OK
	}
	return 0, errs.ENOSPC
}

// Free releases a previously allocated slot.
func (d *Device) Free(i SlotIndex) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mustOwn(i)
	d.bitmap[i/64] &^= 1 << uint(i%64)
}

// Read copies one page from the backing store into dst. The slot remains
// allocated; the caller decides when to free it (spec section 4.1).
func (d *Device) Read(i SlotIndex, dst []byte) errs.Errno {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mustOwn(i)
	if len(dst) != addr.PageSize {
		return errs.EINVAL
	}
	copy(dst, d.store[i][:])
	return errs.OK
}

// Write writes one page to the backing store at slot i.
func (d *Device) Write(i SlotIndex, src []byte) errs.Errno {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mustOwn(i)
	if len(src) != addr.PageSize {
		return errs.EINVAL
	}
	copy(d.store[i][:], src)
	return errs.OK
}

// Used returns the number of currently allocated slots, for the testable
// property in spec section 8 ("swap-slot count of SPT entries with
// is_swapped = count of set bits in the swap bitmap").
func (d *Device) Used() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, w := range d.bitmap {
		n += bits.OnesCount64(w)
	}
	return n
}

// Slots reports the device's total capacity.
func (d *Device) Slots() int {
	return d.slots
}

func (d *Device) mustOwn(i SlotIndex) {
	if int(i) < 0 || int(i) >= d.slots {
		panic("swap: slot index out of range")
	}
	if d.bitmap[i/64]&(1<<uint(i%64)) == 0 {
		panic("swap: use of unallocated slot")
	}
}

// Package addr defines the address-space constants and rounding helpers
// shared by every layer of the virtual-memory core: the page size, the
// user/kernel split, and the stack growth limit from spec section 3 and 4.5.
//
// The rounding helpers generalize biscuit's util.Rounddown/util.Roundup
// generics to the one family of integer types this module actually rounds:
// virtual addresses.
package addr

// VAddr is a page-aligned or byte-granular user virtual address.
type VAddr uint32

const (
	// PageSize is the size of a page (and a frame, and a swap slot) in bytes.
	PageSize = 4096

	// PageShift is log2(PageSize).
	PageShift = 12

	// PhysBase is the lowest kernel virtual address; user address space lies
	// strictly below it (spec section 4.5, decision tree step 1).
	PhysBase VAddr = 0xC0000000

	// StackLimit is the maximum size a process stack may grow to, counted
	// down from PhysBase (spec section 3, invariant 5).
	StackLimit VAddr = 8 * 1024 * 1024

	// StackGrowthSlack is how far below the current stack pointer a fault
	// may land and still be treated as legitimate stack growth (the PUSHA
	// heuristic of spec section 4.5, step 3).
	StackGrowthSlack = 32
)

// PageRoundDown aligns va down to the start of its containing page.
func PageRoundDown(va VAddr) VAddr {
	return va &^ (PageSize - 1)
}

// PageRoundUp aligns va up to the start of the next page, unless va is
// already page-aligned.
func PageRoundUp(va VAddr) VAddr {
	return PageRoundDown(va + PageSize - 1)
}

// PageOffset returns the byte offset of va within its page.
func PageOffset(va VAddr) VAddr {
	return va & (PageSize - 1)
}

// Aligned reports whether va falls exactly on a page boundary.
func Aligned(va VAddr) bool {
	return PageOffset(va) == 0
}

// StackFloor is the lowest address a stack page may occupy (invariant 5).
func StackFloor() VAddr {
	return PhysBase - StackLimit
}

// Package kernel holds the process-wide singletons spec section 9 calls
// out: the frame table, the swap device, and the filesystem, plus the
// page-fault counter. They are initialized once at boot and never torn
// down, mirroring biscuit's global mem.Physmem and the single
// filesystem-lock discipline of spec section 5.
package kernel

import (
	"sync/atomic"

	"vmkern/internal/config"
	"vmkern/internal/frame"
	"vmkern/internal/swap"
	"vmkern/internal/vfs"
)

// Kernel is the set of global, process-wide singletons the fault resolver
// and syscall dispatcher share across every process's address space.
type Kernel struct {
	Frames *frame.Table
	Swap   *swap.Device
	FS     *vfs.FileSystem

	faults atomic.Uint64
}

// Boot constructs the kernel-wide singletons, sized per cfg. Call once at
// startup; there is no corresponding shutdown (spec section 9).
func Boot(cfg config.Config) *Kernel {
	return &Kernel{
		Frames: frame.New(cfg.FramePoolPages),
		Swap:   swap.New(cfg.SwapSlots),
		FS:     vfs.New(),
	}
}

// CountFault increments the page-fault counter.
func (k *Kernel) CountFault() {
	k.faults.Add(1)
}

// Faults reports the number of page faults handled since boot.
func (k *Kernel) Faults() uint64 {
	return k.faults.Load()
}

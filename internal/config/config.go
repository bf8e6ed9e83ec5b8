// Package config holds the core's tunable resource limits: frame pool
// size, swap device size, fd-table width. It follows biscuit's
// limits.MkSysLimit pattern — one constructor returning a struct of tuned
// defaults — rather than a flag- or file-parsing layer; nothing in this
// corpus reaches for a config-file library for kernel-internal tuning
// knobs, so a literal defaults struct is the grounded choice (see
// DESIGN.md).
package config

// FDTableSize is the fixed width of every process's file-descriptor table
// (spec section 3): slots 0 and 1 are reserved, the rest hold open files.
const FDTableSize = 130

// Config bundles the resource limits the kernel-wide singletons are sized
// with at boot (spec section 9: "initialize at boot, never torn down").
type Config struct {
	// FramePoolPages is the number of physical user frames the Frame Table
	// manages (spec section 4.2).
	FramePoolPages int

	// SwapSlots is the number of page-sized slots on the swap device
	// (spec section 4.1).
	SwapSlots int
}

// Default returns the limits a small teaching kernel boots with: a frame
// pool just large enough to force eviction under modest load, and a swap
// device with headroom beyond it.
func Default() Config {
	return Config{
		FramePoolPages: 64,
		SwapSlots:      256,
	}
}

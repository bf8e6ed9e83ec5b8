// Package proc ties one supplemental page table, one file-descriptor
// table, and one mmap registry together into a process, the role
// biscuit's (mostly trimmed) proc package would hold. It is grounded on
// fd.Cwd_t's pattern of a small mutex-guarded struct owning per-process
// resources, and on spec section 5's note that "a process that dies while
// holding the filesystem lock releases it in the exit path" — Exit here
// never holds the filesystem lock across its own teardown, only for the
// individual writeback calls munmap needs.
package proc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"vmkern/internal/aspace"
	"vmkern/internal/console"
	"vmkern/internal/errs"
	"vmkern/internal/fdtable"
	"vmkern/internal/kernel"
	"vmkern/internal/klog"
	"vmkern/internal/spt"
	"vmkern/internal/vfs"
)

var nextPID atomic.Int32

// Process is one user process: its address space, its open files, its
// console devices, and its place in the parent/child tree EXEC and WAIT
// need (spec section 4.6).
type Process struct {
	PID  int
	Name string

	AS  *aspace.AddressSpace
	FDs *fdtable.Table
	Kbd *console.Keyboard
	Disp *console.Display

	k *kernel.Kernel

	mu       sync.Mutex
	exited   bool
	status   int
	done     chan struct{}
	parent   *Process
	children map[int]*Process
	waited   map[int]bool
}

// New constructs a fresh process with an empty address space, attached to
// the given kernel-wide singletons.
func New(k *kernel.Kernel, name string, parent *Process) *Process {
	p := &Process{
		PID:      int(nextPID.Add(1)),
		Name:     name,
		AS:       aspace.New(),
		FDs:      fdtable.New(),
		Kbd:      console.NewKeyboard(),
		Disp:     console.NewDisplay(),
		k:        k,
		done:     make(chan struct{}),
		parent:   parent,
		children: make(map[int]*Process),
		waited:   make(map[int]bool),
	}
	return p
}

// Loader is the out-of-scope process loader (spec section 1), consumed
// here only through the interface EXEC needs: produce a freshly loaded
// child process, or fail.
type Loader interface {
	Load(parent *Process, cmdline string) (*Process, errs.Errno)
}

// Exec implements the EXEC syscall: spawn a child via loader and block on
// its load completion (trivially synchronous here, since the loader is an
// external collaborator this module only calls through an interface), and
// return its pid, or -1 on failure.
func (p *Process) Exec(loader Loader, cmdline string) int {
	child, errno := loader.Load(p, cmdline)
	if errno != errs.OK {
		return -1
	}
	p.mu.Lock()
	p.children[child.PID] = child
	p.mu.Unlock()
	return child.PID
}

// Wait implements the WAIT syscall: block until the named direct child
// terminates and return its exit status. Waiting on the same child twice,
// or on a pid that is not a direct child, fails (spec section 4.6).
func (p *Process) Wait(pid int) int {
	p.mu.Lock()
	child, ok := p.children[pid]
	if !ok || p.waited[pid] {
		p.mu.Unlock()
		return -1
	}
	p.waited[pid] = true
	p.mu.Unlock()

	<-child.done

	child.mu.Lock()
	status := child.status
	child.mu.Unlock()
	return status
}

// Exit implements the canonical exit path of spec section 7: print and
// log "<name>: exit(<status>)", then release every frame, swap slot, mmap
// writeback, and fd-table entry the process held.
func (p *Process) Exit(status int) {
	p.mu.Lock()
	if p.exited {
		p.mu.Unlock()
		return
	}
	p.exited = true
	p.status = status
	p.mu.Unlock()

	fmt.Printf("%s: exit(%d)\n", p.Name, status)
	klog.Exit(p.Name, status)

	for _, region := range p.AS.Mmaps.Regions() {
		p.AS.Mmaps.Munmap(region.ID, p.AS.SPT, p.k.Frames, p.AS.PD, p.k.FS)
	}

	p.AS.PD.Lock()
	p.AS.SPT.Range(func(e *spt.Entry) bool {
		if e.Resident {
			p.k.Frames.Free(e.FrameID)
			p.AS.PD.Clear(e.PageAddr)
		} else if e.IsSwapped {
			p.k.Swap.Free(e.SwapSlot)
		}
		return true
	})
	p.AS.PD.Unlock()

	p.FDs.Range(func(fd int, f *vfs.File) {
		p.FDs.Close(fd)
	})

	close(p.done)
}

// Status returns the exit status recorded by Exit, once the process has
// exited.
func (p *Process) Status() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.exited
}

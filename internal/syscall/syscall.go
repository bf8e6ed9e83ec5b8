// Package syscall implements the Syscall Dispatcher (spec section 4.6): it
// reads the call number and arguments off the user stack, validates every
// user pointer it touches, and drives proc, vfs, mmapreg and fdtable to
// perform the call. It is grounded on biscuit's syscall.Syscall switch
// (the one-call-per-case dispatch shape and the "bad argument kills the
// process" posture) and on the trap-frame argument convention of
// fs.Syscall_t's callers: the call number sits at esp, and up to three
// word arguments follow at esp+4, esp+8, esp+12.
package syscall

import (
	"vmkern/internal/addr"
	"vmkern/internal/aspace"
	"vmkern/internal/errs"
	"vmkern/internal/fault"
	"vmkern/internal/frame"
	"vmkern/internal/kernel"
	"vmkern/internal/proc"
)

// Call numbers, in the order spec section 4.6's table lists them.
const (
	HALT = iota
	EXIT
	EXEC
	WAIT
	CREATE
	REMOVE
	OPEN
	FILESIZE
	SEEK
	TELL
	READ
	WRITE
	CLOSE
	MMAP
	MUNMAP
)

// maxCString bounds a name-argument scan; biscuit's own name buffers are
// similarly bounded rather than unbounded.
const maxCString = 512

// Halted is returned by Dispatch after a HALT call; the caller (the demo
// harness or a test) is expected to stop scheduling the machine.
var Halted = errs.Errno(-100)

// Args reads the call number and its three word-sized arguments from the
// trap frame at esp (spec section 4.6): callno at esp, args at esp+4,
// esp+8 and esp+12.
func Args(k *kernel.Kernel, as *aspace.AddressSpace, esp addr.VAddr) (callno int, a0, a1, a2 uint32, errno errs.Errno) {
	w0, e := readWord(k, as, esp)
	if e != errs.OK {
		return 0, 0, 0, 0, e
	}
	w1, e := readWord(k, as, esp+4)
	if e != errs.OK {
		return 0, 0, 0, 0, e
	}
	w2, e := readWord(k, as, esp+8)
	if e != errs.OK {
		return 0, 0, 0, 0, e
	}
	w3, e := readWord(k, as, esp+12)
	if e != errs.OK {
		return 0, 0, 0, 0, e
	}
	return int(w0), w1, w2, w3, errs.OK
}

// Dispatch decodes and executes one syscall. On a fatal argument or
// access error it terminates p with status -1 (spec section 4.6's
// recurring "invalid X -> exit -1" rule) and returns ret -1: the errno is
// errs.EFAULT when the trap frame or a name/cmdline string cannot be read,
// and errs.OK for the other fatal cases (an invalid fd, or a bad READ/WRITE
// buffer). HALT returns Halted; an unknown call number does nothing and
// returns errs.EINVAL; everything else returns errs.OK with ret set to the
// call's return value.
func Dispatch(k *kernel.Kernel, p *proc.Process, loader proc.Loader, esp addr.VAddr) (ret int, errno errs.Errno) {
	callno, a0, a1, a2, errno := Args(k, p.AS, esp)
	if errno != errs.OK {
		p.Exit(-1)
		return -1, errs.EFAULT
	}

	switch callno {
	case HALT:
		return 0, Halted

	case EXIT:
		p.Exit(int(int32(a0)))
		return int(int32(a0)), errs.OK

	case EXEC:
		cmdline, e := readCString(k, p.AS, addr.VAddr(a0), esp)
		if e != errs.OK {
			p.Exit(-1)
			return -1, errs.EFAULT
		}
		return p.Exec(loader, cmdline), errs.OK

	case WAIT:
		return p.Wait(int(int32(a0))), errs.OK

	case CREATE:
		name, e := readCString(k, p.AS, addr.VAddr(a0), esp)
		if e != errs.OK {
			p.Exit(-1)
			return -1, errs.EFAULT
		}
		k.FS.Lock()
		e2 := k.FS.Create(name, int(a1))
		k.FS.Unlock()
		if e2 != errs.OK {
			return -1, errs.OK
		}
		return 0, errs.OK

	case REMOVE:
		name, e := readCString(k, p.AS, addr.VAddr(a0), esp)
		if e != errs.OK {
			p.Exit(-1)
			return -1, errs.EFAULT
		}
		k.FS.Lock()
		e2 := k.FS.Remove(name)
		k.FS.Unlock()
		if e2 != errs.OK {
			return -1, errs.OK
		}
		return 0, errs.OK

	case OPEN:
		name, e := readCString(k, p.AS, addr.VAddr(a0), esp)
		if e != errs.OK {
			p.Exit(-1)
			return -1, errs.EFAULT
		}
		k.FS.Lock()
		f, e2 := k.FS.Open(name)
		k.FS.Unlock()
		if e2 != errs.OK {
			return -1, errs.OK
		}
		fd, e3 := p.FDs.Open(f)
		if e3 != errs.OK {
			return -1, errs.OK
		}
		return fd, errs.OK

	case FILESIZE:
		f, e := p.FDs.Get(int(int32(a0)))
		if e != errs.OK {
			p.Exit(-1)
			return -1, errs.OK
		}
		k.FS.Lock()
		n := f.Length()
		k.FS.Unlock()
		return int(n), errs.OK

	case SEEK:
		f, e := p.FDs.Get(int(int32(a0)))
		if e != errs.OK {
			p.Exit(-1)
			return -1, errs.OK
		}
		k.FS.Lock()
		f.Seek(int64(int32(a1)))
		k.FS.Unlock()
		return 0, errs.OK

	case TELL:
		f, e := p.FDs.Get(int(int32(a0)))
		if e != errs.OK {
			p.Exit(-1)
			return -1, errs.OK
		}
		k.FS.Lock()
		n := f.Tell()
		k.FS.Unlock()
		return int(n), errs.OK

	case READ:
		return doRead(k, p, int(int32(a0)), addr.VAddr(a1), int(a2), esp)

	case WRITE:
		return doWrite(k, p, int(int32(a0)), addr.VAddr(a1), int(a2), esp)

	case CLOSE:
		fd := int(int32(a0))
		if fd == 0 || fd == 1 {
			return 0, errs.OK
		}
		if e := p.FDs.Close(fd); e != errs.OK {
			p.Exit(-1)
			return -1, errs.OK
		}
		return 0, errs.OK

	case MMAP:
		return doMmap(k, p, int(int32(a0)), addr.VAddr(a1))

	case MUNMAP:
		e := p.AS.Mmaps.Munmap(int(int32(a0)), p.AS.SPT, k.Frames, p.AS.PD, k.FS)
		if e != errs.OK {
			return -1, errs.OK
		}
		return 0, errs.OK

	default:
		return -1, errs.EINVAL
	}
}

// doRead implements the READ row: fd=0 pulls up to n bytes off the keyboard
// one character at a time (spec section 9's Open Question), anything else
// is a locked file read. The keyboard path does not wait for input: it
// stops at the first empty-queue Getc and returns the count read so far,
// which can be less than n.
func doRead(k *kernel.Kernel, p *proc.Process, fd int, buf addr.VAddr, n int, esp addr.VAddr) (int, errs.Errno) {
	if fd == 1 {
		p.Exit(-1)
		return -1, errs.OK
	}
	if fd == 0 {
		got := 0
		for i := 0; i < n; i++ {
			c, ok := p.Kbd.Getc()
			if !ok {
				break
			}
			if e := writeByte(k, p.AS, buf+addr.VAddr(i), c, esp); e != errs.OK {
				p.Exit(-1)
				return -1, errs.OK
			}
			got++
		}
		return got, errs.OK
	}

	f, e := p.FDs.Get(fd)
	if e != errs.OK {
		p.Exit(-1)
		return -1, errs.OK
	}
	local := make([]byte, n)
	k.FS.Lock()
	got := f.Read(local)
	k.FS.Unlock()
	if e := copyOut(k, p.AS, buf, local[:got], esp); e != errs.OK {
		p.Exit(-1)
		return -1, errs.OK
	}
	return got, errs.OK
}

// doWrite implements the WRITE row: fd=1 appends to the console display,
// anything else is a locked file write.
func doWrite(k *kernel.Kernel, p *proc.Process, fd int, buf addr.VAddr, n int, esp addr.VAddr) (int, errs.Errno) {
	if fd == 0 {
		p.Exit(-1)
		return -1, errs.OK
	}
	local, e := copyIn(k, p.AS, buf, n, esp)
	if e != errs.OK {
		p.Exit(-1)
		return -1, errs.OK
	}
	if fd == 1 {
		return p.Disp.Write(local), errs.OK
	}

	f, e2 := p.FDs.Get(fd)
	if e2 != errs.OK {
		p.Exit(-1)
		return -1, errs.OK
	}
	k.FS.Lock()
	wrote := f.Write(local)
	k.FS.Unlock()
	return wrote, errs.OK
}

// doMmap implements the MMAP row (spec section 4.4/4.6): reopen fd's file
// and install the mapping at base.
func doMmap(k *kernel.Kernel, p *proc.Process, fd int, base addr.VAddr) (int, errs.Errno) {
	f, e := p.FDs.Get(fd)
	if e != errs.OK {
		return -1, errs.OK
	}
	k.FS.Lock()
	length := f.Length()
	k.FS.Unlock()

	id, e2 := p.AS.Mmaps.Mmap(p.AS.SPT, fd, base, f.Reopen(), length, dataSegmentEnd(p))
	if e2 != errs.OK {
		return -1, errs.OK
	}
	return id, errs.OK
}

// dataSegmentEnd is a placeholder for the loader-supplied end of the data
// segment (spec section 4.4's rejection check); the loader itself is out
// of scope (spec section 1), so this reports a fixed one page (0x1000);
// with Mmap's base <= dataEnd check that rejects only the null page and
// the page directly above it.
func dataSegmentEnd(p *proc.Process) addr.VAddr {
	return addr.PageSize
}

func readWord(k *kernel.Kernel, as *aspace.AddressSpace, va addr.VAddr) (uint32, errs.Errno) {
	b, e := copyIn(k, as, va, 4, va)
	if e != errs.OK {
		return 0, e
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, errs.OK
}

func writeByte(k *kernel.Kernel, as *aspace.AddressSpace, va addr.VAddr, c byte, esp addr.VAddr) errs.Errno {
	return copyOut(k, as, va, []byte{c}, esp)
}

// readCString reads a NUL-terminated string out of user memory, the
// argument convention for every name/cmdline pointer in spec section 4.6's
// table.
func readCString(k *kernel.Kernel, as *aspace.AddressSpace, va addr.VAddr, esp addr.VAddr) (string, errs.Errno) {
	buf := make([]byte, 0, 32)
	for i := 0; i < maxCString; i++ {
		b, e := copyIn(k, as, va+addr.VAddr(i), 1, esp)
		if e != errs.OK {
			return "", e
		}
		if b[0] == 0 {
			return string(buf), errs.OK
		}
		buf = append(buf, b[0])
	}
	return "", errs.EINVAL
}

// copyIn validates and copies n bytes starting at va out of user memory.
// A touched page that is mapped but not yet resident is itself a
// resolvable fault (spec section 4.6: the pointer/buffer check is a
// read-touch that may trigger the lazy-load path, not a bare residency
// check) — copyIn drives fault.Resolve to page it in before retrying.
// Only an address fault.Resolve itself rejects (bad address, exhausted
// stack growth window, and so on) terminates the process.
func copyIn(k *kernel.Kernel, as *aspace.AddressSpace, va addr.VAddr, n int, esp addr.VAddr) ([]byte, errs.Errno) {
	if va == 0 || n < 0 || va+addr.VAddr(n) > addr.PhysBase || va+addr.VAddr(n) < va {
		return nil, errs.EFAULT
	}
	out := make([]byte, 0, n)
	for i := 0; i < n; {
		page := addr.PageRoundDown(va + addr.VAddr(i))
		off := int(addr.PageOffset(va + addr.VAddr(i)))
		data, ok := pageData(k, as, page, false, esp)
		if !ok {
			return nil, errs.EFAULT
		}
		take := addr.PageSize - off
		if take > n-i {
			take = n - i
		}
		out = append(out, data[off:off+take]...)
		i += take
	}
	return out, errs.OK
}

// copyOut validates and copies p into user memory starting at va, faulting
// in any not-yet-resident page it touches the same way copyIn does.
func copyOut(k *kernel.Kernel, as *aspace.AddressSpace, va addr.VAddr, p []byte, esp addr.VAddr) errs.Errno {
	n := len(p)
	if va == 0 || va+addr.VAddr(n) > addr.PhysBase || va+addr.VAddr(n) < va {
		return errs.EFAULT
	}
	for i := 0; i < n; {
		page := addr.PageRoundDown(va + addr.VAddr(i))
		off := int(addr.PageOffset(va + addr.VAddr(i)))
		data, ok := pageData(k, as, page, true, esp)
		if !ok {
			return errs.EFAULT
		}
		take := addr.PageSize - off
		if take > n-i {
			take = n - i
		}
		copy(data[off:off+take], p[i:i+take])
		i += take
	}
	return errs.OK
}

// pageData resolves page to its backing frame bytes and simulates the
// hardware accessed/dirty bits this access would set (mmu.Touch's
// contract). A miss is handed to fault.Resolve exactly as a CPU trap
// would be, with esp as the stack pointer fault.Resolve needs for its
// stack-growth heuristic; pageData retries the lookup once after a
// successful resolve and only reports failure if the page is still
// unmapped or fault.Resolve itself rejected the access.
func pageData(k *kernel.Kernel, as *aspace.AddressSpace, page addr.VAddr, write bool, esp addr.VAddr) ([]byte, bool) {
	as.PD.Lock()
	if f, ok := as.PD.GetFrame(page); ok {
		as.PD.Touch(page, write)
		data := k.Frames.Data(frame.FromMMUFrame(f))
		as.PD.Unlock()
		return data, true
	}
	as.PD.Unlock()

	if errno := fault.Resolve(k, as, page, write, true, esp); errno != errs.OK {
		return nil, false
	}

	as.PD.Lock()
	defer as.PD.Unlock()
	f, ok := as.PD.GetFrame(page)
	if !ok {
		return nil, false
	}
	as.PD.Touch(page, write)
	return k.Frames.Data(frame.FromMMUFrame(f)), true
}

// Package errs defines the kernel/user boundary error contract. Every
// internal package that plays the role of a biscuit-style kernel component
// (fault resolver, syscall dispatcher, swap device, frame table) returns an
// Errno rather than a Go error, mirroring defs.Err_t: zero means success, a
// negative value names a failure.
//
// Errno also satisfies the error interface, and Wrap turns it into an
// ordinary Go error wrapped with github.com/pkg/errors so causes chain and
// %+v prints a trace, the way the syscall- and kernel-adjacent
// other_examples files wrap their own error codes. Within this module only
// the errs tests call Wrap; the kernel packages pass Errno values directly.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errno is a kernel-style error code. The zero value means success.
type Errno int

const (
	OK       Errno = 0
	EFAULT   Errno = -1 // bad user pointer or address-space invariant breach
	ENOMEM   Errno = -2 // no physical frame available
	ENOSPC   Errno = -3 // swap device exhausted
	EINVAL   Errno = -4 // malformed argument
	EBADF    Errno = -5 // bad file descriptor
	EMFILE   Errno = -6 // file-descriptor table full
	ENOENT   Errno = -7 // no such file
	EEXIST   Errno = -8 // mapping collision, or file already exists
	EIO      Errno = -9  // short read/write during fault-in or writeback
	ECHILD   Errno = -10 // wait() on a pid that is not a live child
)

// String names the error the way biscuit's defs.Err_t values read in panics
// and log lines.
func (e Errno) String() string {
	switch e {
	case OK:
		return "ok"
	case EFAULT:
		return "EFAULT"
	case ENOMEM:
		return "ENOMEM"
	case ENOSPC:
		return "ENOSPC"
	case EINVAL:
		return "EINVAL"
	case EBADF:
		return "EBADF"
	case EMFILE:
		return "EMFILE"
	case ENOENT:
		return "ENOENT"
	case EEXIST:
		return "EEXIST"
	case EIO:
		return "EIO"
	case ECHILD:
		return "ECHILD"
	default:
		return fmt.Sprintf("errno(%d)", int(e))
	}
}

// Wrap turns a kernel Errno into a Go error carrying ctx as a message,
// suitable for surfacing through the demo CLI or a test failure.
func Wrap(e Errno, ctx string) error {
	if e == OK {
		return nil
	}
	return errors.Wrap(e, ctx)
}

// Error satisfies the error interface so Errno can be wrapped directly.
func (e Errno) Error() string {
	return e.String()
}

// Package vfs is the minimal filesystem facade the core's external
// collaborator interface (spec section 6) assumes: open/close, seek/tell,
// read/write, length, reopen, remove, create, write_at, all blocking and
// serialized on one global lock (spec section 5). The real filesystem and
// block device are out of scope (spec section 1); vfs stands in with an
// in-memory byte-slice-backed file table, grounded on fs.Bdev_block_t's
// and fs.Superblock_t's field-accessor style and fs.Disk_i's synchronous
// request/ack shape, narrowed from a block cache to a flat file table.
package vfs

import (
	"sync"

	"vmkern/internal/errs"
)

// inode is the backing store for one file, shared by every File handle
// reopened against it (spec section 4.4: mmap "reopens the file
// (independent seek)").
type inode struct {
	mu   sync.Mutex
	data []byte
	name string
}

// File is one open handle: an independent seek position over a shared
// inode, the role biscuit's Fd_t/Fops_i pairing plays for a single file.
type File struct {
	ino    *inode
	pos    int64
	closed bool
}

// ReadAt and WriteAt make File satisfy spt.File without this package
// importing spt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.ino.mu.Lock()
	defer f.ino.mu.Unlock()
	if off < 0 || off >= int64(len(f.ino.data)) {
		return 0, nil
	}
	n := copy(p, f.ino.data[off:])
	return n, nil
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.ino.mu.Lock()
	defer f.ino.mu.Unlock()
	need := off + int64(len(p))
	if need > int64(len(f.ino.data)) {
		grown := make([]byte, need)
		copy(grown, f.ino.data)
		f.ino.data = grown
	}
	n := copy(f.ino.data[off:], p)
	return n, nil
}

// Read reads up to len(p) bytes starting at the handle's current position
// and advances it, the READ syscall's non-console path (spec section 4.6).
func (f *File) Read(p []byte) int {
	n, _ := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n
}

// Write writes p at the handle's current position and advances it, the
// WRITE syscall's non-console path.
func (f *File) Write(p []byte) int {
	n, _ := f.WriteAt(p, f.pos)
	f.pos += int64(n)
	return n
}

// Seek repositions the handle (the SEEK syscall).
func (f *File) Seek(pos int64) {
	if pos < 0 {
		pos = 0
	}
	f.pos = pos
}

// Tell reports the handle's current position (the TELL syscall).
func (f *File) Tell() int64 {
	return f.pos
}

// Length reports the file's current size (the FILESIZE syscall).
func (f *File) Length() int64 {
	f.ino.mu.Lock()
	defer f.ino.mu.Unlock()
	return int64(len(f.ino.data))
}

// Reopen returns an independent handle onto the same inode, the way
// fd.Copyfd duplicates a descriptor by reopening it — used by mmap to get
// a private seek position (spec section 4.4).
func (f *File) Reopen() *File {
	return &File{ino: f.ino}
}

// Name reports the path the handle was opened with.
func (f *File) Name() string {
	return f.ino.name
}

// Close releases the handle. It is a caller error to close the same
// handle twice.
func (f *File) Close() {
	if f.closed {
		panic("vfs: double close")
	}
	f.closed = true
}

// FileSystem is the kernel-wide filesystem singleton (spec section 9).
// Every method below assumes the caller already holds the global
// filesystem lock (Lock/Unlock) — spec section 5 requires one lock to
// serialize every filesystem entry point, acquired at the syscall
// boundary or, when the fault resolver is already holding it
// transitively, left untaken here. None of FileSystem's own methods take
// the lock themselves, so a dispatcher that has already locked can freely
// call Open then ReadAt in the same critical section without deadlocking.
type FileSystem struct {
	mu    sync.Mutex
	files map[string]*inode
}

// New constructs an empty in-memory filesystem.
func New() *FileSystem {
	return &FileSystem{files: make(map[string]*inode)}
}

// Lock acquires the global filesystem lock (spec section 5).
func (fs *FileSystem) Lock() { fs.mu.Lock() }

// Unlock releases the global filesystem lock.
func (fs *FileSystem) Unlock() { fs.mu.Unlock() }

// Create adds a new file of the given size (zero-filled), failing with
// EEXIST if the name is taken. Caller must hold the filesystem lock.
func (fs *FileSystem) Create(name string, size int) errs.Errno {
	if _, ok := fs.files[name]; ok {
		return errs.EEXIST
	}
	fs.files[name] = &inode{data: make([]byte, size), name: name}
	return errs.OK
}

// Remove deletes a file by name. Caller must hold the filesystem lock.
func (fs *FileSystem) Remove(name string) errs.Errno {
	if _, ok := fs.files[name]; !ok {
		return errs.ENOENT
	}
	delete(fs.files, name)
	return errs.OK
}

// Open returns a fresh handle onto an existing file. Caller must hold the
// filesystem lock.
func (fs *FileSystem) Open(name string) (*File, errs.Errno) {
	ino, ok := fs.files[name]
	if !ok {
		return nil, errs.ENOENT
	}
	return &File{ino: ino}, errs.OK
}

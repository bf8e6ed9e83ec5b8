// Package console implements the keyboard and display devices stdin (fd 0)
// and stdout (fd 1) are wired to. It is grounded on smoynes-elsie's
// Keyboard device (internal/vm/kbd.go): a small mutex-guarded queue a
// driver feeds and the READ syscall drains one byte at a time. Per spec
// section 9's Open Question, read(fd=0,...) writes one byte per
// character into the destination buffer, not an int-sized element per
// character as the original did.
package console

import (
	"bytes"
	"sync"
)

// Keyboard is the input device behind fd 0.
type Keyboard struct {
	mu    sync.Mutex
	queue []byte
}

// NewKeyboard constructs an empty keyboard queue.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// Feed appends bytes as if typed at the keyboard — the demo CLI's raw-mode
// terminal reader calls this for every keystroke it captures.
func (k *Keyboard) Feed(b []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.queue = append(k.queue, b...)
}

// Getc pops one byte, blocking-free: it returns ok=false if the queue is
// currently empty rather than blocking the caller, since this module has
// no scheduler to park a thread on (out of scope, spec section 1).
func (k *Keyboard) Getc() (byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.queue) == 0 {
		return 0, false
	}
	c := k.queue[0]
	k.queue = k.queue[1:]
	return c, true
}

// Display is the output device behind fd 1, buffering everything written
// to it the way a real console driver buffers until flush.
type Display struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewDisplay constructs an empty display buffer.
func NewDisplay() *Display {
	return &Display{}
}

// Write appends p to the console's output buffer (the WRITE syscall's
// fd=1 path, spec section 4.6).
func (d *Display) Write(p []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf.Write(p)
	return len(p)
}

// Drain returns everything written so far and clears the buffer, the
// console "flush" spec section 4.6 mentions.
func (d *Display) Drain() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := append([]byte(nil), d.buf.Bytes()...)
	d.buf.Reset()
	return out
}

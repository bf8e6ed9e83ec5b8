// Command vmkern-demo is a small interactive harness for the kernel
// packages: it puts the terminal in raw mode, feeds every keystroke into
// a process's keyboard device (echoing it into the display device), and
// on exit flushes whatever landed on the display device back to the real
// terminal and writes a pprof snapshot of the kernel's
// fault/eviction/swap counters. It is grounded on
// smoynes-elsie's cmd/internal/tty.Console (raw-mode setup via
// golang.org/x/term, a goroutine pumping stdin bytes into a keyboard
// device) and on the same repo's tty.go for the Restore-on-exit
// discipline, generalized from elsie's TTY-adapter pattern to this
// module's Keyboard/Display device pair.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/term"

	"vmkern/internal/config"
	"vmkern/internal/diag"
	"vmkern/internal/kernel"
	"vmkern/internal/klog"
	"vmkern/internal/proc"
)

func main() {
	pprofPath := flag.String("pprof", "", "write a pprof counter snapshot here on exit")
	flag.Parse()

	klog.SetOutput(os.Stderr)

	k := kernel.Boot(config.Default())
	p := proc.New(k, "vmkern-demo", nil)

	fd := int(os.Stdin.Fd())
	raw := term.IsTerminal(fd)

	var restore *term.State
	if raw {
		var err error
		restore, err = term.MakeRaw(fd)
		if err != nil {
			raw = false
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	done := make(chan struct{})
	go pumpKeyboard(p, done)

	fmt.Fprintln(os.Stderr, "vmkern-demo: type; ctrl-d or ctrl-c to quit")

	select {
	case <-sig:
	case <-done:
	}

	if raw {
		term.Restore(fd, restore)
	}
	os.Stdout.Write(p.Disp.Drain())

	if *pprofPath != "" {
		f, err := os.Create(*pprofPath)
		if err == nil {
			diag.Write(f, k)
			f.Close()
		}
	}

	p.Exit(0)
}

// pumpKeyboard reads stdin byte by byte and feeds the process's keyboard
// device, echoing each byte straight to the display device the way a
// kernel-driven terminal echoes a keypress before it is even read by user
// code.
func pumpKeyboard(p *proc.Process, done chan<- struct{}) {
	r := bufio.NewReader(os.Stdin)
	for {
		b, err := r.ReadByte()
		if err != nil {
			close(done)
			return
		}
		if b == 3 || b == 4 { // ctrl-c (a plain byte in raw mode) or ctrl-d
			close(done)
			return
		}
		p.Kbd.Feed([]byte{b})
		p.Disp.Write([]byte{b})
	}
}

// Package klog provides the core's narration of state transitions: page
// faults, evictions, syscall terminations. It wraps log/slog the way
// smoynes-elsie/internal/log wraps slog with its own Handler, which is the
// only structured-logging convention this corpus shows — the core logs
// terse, occasional one-liners at fault/eviction/exit boundaries, the way
// biscuit's kbd_daemon, sizedump and netdump narrate kernel state rather
// than logging once per function call.
package klog

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// SetOutput redirects the default logger, mainly so tests can assert on
// emitted lines without touching process stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	current = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Default returns the process-wide logger.
func Default() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Fault logs a page-fault resolution outcome.
func Fault(va uint32, write, user bool, outcome string) {
	Default().Info("page fault", "va", va, "write", write, "user", user, "outcome", outcome)
}

// Evict logs an eviction decision.
func Evict(va uint32, purpose string, dirty bool, dest string) {
	Default().Info("evict", "va", va, "purpose", purpose, "dirty", dirty, "dest", dest)
}

// Exit logs the canonical process exit line required by spec section 7,
// in addition to printing it (the print is the user-visible contract; the
// log line is for kernel-side observability).
func Exit(name string, status int) {
	Default().Info("exit", "process", name, "status", status)
}

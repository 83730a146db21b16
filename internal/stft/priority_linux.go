//go:build linux

package stft

import (
	"log"
	"unsafe"

	"golang.org/x/sys/unix"
)

// schedParam mirrors the kernel's struct sched_param (a single int,
// sched_priority), which golang.org/x/sys/unix does not expose a
// wrapper for.
type schedParam struct {
	Priority int32
}

// ElevatePriority makes a best-effort attempt to raise the calling
// goroutine's OS thread to a real-time scheduling policy, so the STFT
// processing loop is less likely to be preempted past its ~2.67ms budget
// at 48kHz/128-sample blocks (spec.md §5). This requires CAP_SYS_NICE or
// root and is expected to fail under ordinary container/user permissions;
// failure is logged and otherwise ignored, mirroring the teacher's own
// best-effort direct syscall tuning (SO_REUSEPORT/SO_REUSEADDR in
// audio.go) which likewise treats failures as warnings, not fatal errors.
func ElevatePriority() {
	const schedFIFO = 1
	param := schedParam{Priority: 50}
	if _, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, schedFIFO, uintptr(unsafe.Pointer(&param))); errno != 0 {
		log.Printf("stft: could not elevate to SCHED_FIFO (need CAP_SYS_NICE): %v", errno)
	}
}

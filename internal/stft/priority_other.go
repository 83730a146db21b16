//go:build !linux

package stft

// ElevatePriority is a no-op on non-Linux platforms; real-time scheduling
// elevation is best-effort and Linux-specific (spec.md §5 imposes no
// particular OS mechanism, only a soft deadline).
func ElevatePriority() {}

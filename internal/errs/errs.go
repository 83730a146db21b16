// Package errs defines the closed set of error kinds the noise-generator
// core can surface, per spec.md §7. Callers compare with errors.Is; the
// wrapped detail (via fmt.Errorf("%w: ...")) is for logs, not control flow.
package errs

import "errors"

var (
	// ErrUnsupported: the host lacks a required audio capability. Fatal at
	// initialization.
	ErrUnsupported = errors.New("noiseforge: unsupported host capability")

	// ErrNotInitialized: operation requires completed initialization.
	ErrNotInitialized = errors.New("noiseforge: not initialized")

	// ErrBadIndex: operation referenced a nonexistent track or filter.
	ErrBadIndex = errors.New("noiseforge: bad index")

	// ErrBadParameter: an enum field had an unrecognized value. Numeric
	// out-of-range values are clamped, not rejected, and never produce
	// this error.
	ErrBadParameter = errors.New("noiseforge: bad parameter")

	// ErrWorkerInitTimeout: a render worker failed to come online within
	// its init deadline. The dispatcher degrades to sequential mode.
	ErrWorkerInitTimeout = errors.New("noiseforge: worker init timeout")

	// ErrWorkerJobFailed: a chunk failed on a worker after exhausting
	// retries.
	ErrWorkerJobFailed = errors.New("noiseforge: worker job failed")

	// ErrCancelled: an offline render observed a cancellation request.
	ErrCancelled = errors.New("noiseforge: cancelled")

	// ErrInternal: a precondition was violated; should be unreachable.
	ErrInternal = errors.New("noiseforge: internal error")
)

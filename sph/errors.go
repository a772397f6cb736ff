package sph

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures by how the frame loop reacts to them.
type Kind int

const (
	// SetupFailure happens while building resources before the loop starts.
	// It is always fatal.
	SetupFailure Kind = iota + 1
	// SubmissionFailure is a per-frame submit that the driver rejected. The
	// frame is skipped; too many in a row end the loop.
	SubmissionFailure
	// SwapchainStale means no image could be acquired or presented because the
	// wait timed out or the swapchain no longer matches the window. The frame
	// is skipped and the swapchain rebuilt.
	SwapchainStale
)

func (k Kind) String() string {
	switch k {
	case SetupFailure:
		return "setup failure"
	case SubmissionFailure:
		return "submission failure"
	case SwapchainStale:
		return "swapchain stale"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a failure of Op of the given Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause reach the underlying failure.
func (e *Error) Cause() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func setupError(op string, err error) error {
	return newError(SetupFailure, op, err)
}

// IsKind reports whether err, or anything it wraps, is an *Error of kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

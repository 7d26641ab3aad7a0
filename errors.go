package xr

import (
	"errors"
	"fmt"
)

// Setup errors. They are always wrapped in a *SetupError and abort startup.
var (
	// ErrMissingExtension is matched by *MissingExtensionError.
	ErrMissingExtension = errors.New("xr: required extension missing")

	// ErrUnsupportedViewConfiguration is returned when the system does not
	// offer exactly two stereo views of equal recommended height.
	ErrUnsupportedViewConfiguration = errors.New("xr: unsupported view configuration")

	// ErrInstanceDestroyed is returned by operations on a destroyed Instance.
	ErrInstanceDestroyed = errors.New("xr: instance destroyed")
)

// Protocol violations: programming errors surfaced at the call site that
// misused the frame, swapchain or action protocol.
var (
	ErrDoubleAcquire            = errors.New("xr: swapchain image already acquired")
	ErrReleaseWithoutAcquire    = errors.New("xr: swapchain image released without acquire")
	ErrWaitWithoutAcquire       = errors.New("xr: swapchain image waited without acquire")
	ErrReleaseBeforeWait        = errors.New("xr: swapchain image released before wait")
	ErrSwapchainDestroyed       = errors.New("xr: swapchain destroyed")
	ErrActionsNotSynchronizable = errors.New("xr: actions synchronized outside a synchronizable session state")
	ErrEndFrameWithoutBegin     = errors.New("xr: frame ended without a matching begin")
	ErrFrameNotEnded            = errors.New("xr: frame started before the previous frame ended")
	ErrLayersWithoutRender      = errors.New("xr: layers submitted for a frame that should not render")
	ErrBindingsAlreadyAttached  = errors.New("xr: action bindings already attached")
	ErrBindingsNotAttached      = errors.New("xr: action bindings not attached")
	ErrNoSession                = errors.New("xr: no session")
	ErrSessionExists            = errors.New("xr: session already created")
)

// Transient runtime conditions. The frame loop absorbs them and retries on
// the next iteration.
var (
	ErrFrameDiscarded     = errors.New("xr: frame discarded")
	ErrSessionLossPending = errors.New("xr: session loss pending")
	ErrWaitImageTimeout   = errors.New("xr: swapchain image wait timed out")
)

// SetupError wraps a fatal startup failure with the operation that failed.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("xr: %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// MissingExtensionError reports a mandatory runtime extension that is not
// offered by the runtime.
type MissingExtensionError struct {
	Name string
}

func (e *MissingExtensionError) Error() string {
	return "xr: required extension missing: " + e.Name
}

// Is matches ErrMissingExtension.
func (e *MissingExtensionError) Is(target error) bool {
	return target == ErrMissingExtension
}

func setupErr(op string, err error) error {
	return &SetupError{Op: op, Err: err}
}

// IsTransient reports whether err is a recoverable runtime condition.
func IsTransient(err error) bool {
	return errors.Is(err, ErrFrameDiscarded) ||
		errors.Is(err, ErrSessionLossPending) ||
		errors.Is(err, ErrWaitImageTimeout)
}

// IsProtocolViolation reports whether err reports misuse of the protocol.
func IsProtocolViolation(err error) bool {
	for _, target := range []error{
		ErrDoubleAcquire,
		ErrReleaseWithoutAcquire,
		ErrWaitWithoutAcquire,
		ErrReleaseBeforeWait,
		ErrSwapchainDestroyed,
		ErrActionsNotSynchronizable,
		ErrEndFrameWithoutBegin,
		ErrFrameNotEnded,
		ErrLayersWithoutRender,
		ErrBindingsAlreadyAttached,
		ErrBindingsNotAttached,
		ErrNoSession,
		ErrSessionExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsSetup reports whether err is a fatal setup failure.
func IsSetup(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

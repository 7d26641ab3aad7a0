package driver

import "errors"

// Runtime error codes. Drivers return these (optionally wrapped) so the xr
// package can classify failures.
var (
	ErrValidationFailure            = errors.New("driver: validation failure")
	ErrHandleInvalid                = errors.New("driver: handle invalid")
	ErrExtensionNotPresent          = errors.New("driver: extension not present")
	ErrFormFactorUnavailable        = errors.New("driver: form factor unavailable")
	ErrViewConfigurationUnsupported = errors.New("driver: view configuration type unsupported")
	ErrSessionNotReady              = errors.New("driver: session not ready")
	ErrSessionRunning               = errors.New("driver: session running")
	ErrSessionNotRunning            = errors.New("driver: session not running")
	ErrSessionNotStopping           = errors.New("driver: session not stopping")
	ErrCallOrderInvalid             = errors.New("driver: call order invalid")
	ErrActionSetsAlreadyAttached    = errors.New("driver: action sets already attached")
	ErrActionSetNotAttached         = errors.New("driver: action set not attached")
	ErrPathInvalid                  = errors.New("driver: path invalid")
	ErrPathUnsupported              = errors.New("driver: path unsupported")
	ErrActionTypeMismatch           = errors.New("driver: action type mismatch")
	ErrSwapchainFormatUnsupported   = errors.New("driver: swapchain format unsupported")
	ErrTimeout                      = errors.New("driver: timeout expired")
	ErrLayerInvalid                 = errors.New("driver: layer invalid")
	ErrInstanceLost                 = errors.New("driver: instance lost")
	ErrSessionLost                  = errors.New("driver: session lost")
)

package capture

import (
	"context"
	"errors"
)

// Failure kinds. A *FlowError matches its kind with errors.Is.
var (
	ErrCameraPermission    = errors.New("camera permission denied or camera unavailable")
	ErrCaptureFailed       = errors.New("frame capture failed")
	ErrLocationPermission  = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("position unavailable")
	ErrLocationTimeout     = errors.New("position request timed out")
	ErrRenderFailed        = errors.New("certificate rendering failed")
)

// Precondition errors. These reject a call without changing state.
var (
	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrUnknownIssue      = errors.New("unknown issue type")
	ErrLocationPending   = errors.New("location not resolved yet")
	ErrRendererNotReady  = errors.New("renderer not ready")
	ErrNoArtifact        = errors.New("no certificate has been rendered")
)

// User-facing messages, one per failure kind.
const (
	MsgCameraPermission    = "Camera access denied. Please allow camera access and try again."
	MsgCaptureFailed       = "Could not capture a photo from the camera. Please try again."
	MsgLocationPermission  = "Location access denied. Please enable location permission and try again."
	MsgLocationUnavailable = "Your location is currently unavailable. Please try again."
	MsgLocationTimeout     = "Getting your location timed out. Please try again."
	MsgRenderFailed        = "Could not generate the certificate. Please try again."
)

// FlowError is returned when a step fails and the session falls back to Idle.
type FlowError struct {
	Kind    error
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *FlowError) Unwrap() error { return e.Err }

// Is matches the failure kind.
func (e *FlowError) Is(target error) bool { return target == e.Kind }

// classifyPosition maps a locator failure to a failure kind and message.
// parent is the caller's context; lctx carries the position timeout.
func classifyPosition(parent, lctx context.Context, err error) (error, string) {
	var pe *PositionError
	if errors.As(err, &pe) {
		switch pe.Code {
		case PermissionDenied:
			return ErrLocationPermission, MsgLocationPermission
		case Timeout:
			return ErrLocationTimeout, MsgLocationTimeout
		default:
			return ErrLocationUnavailable, MsgLocationUnavailable
		}
	}
	if errors.Is(lctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return ErrLocationTimeout, MsgLocationTimeout
	}
	return ErrLocationUnavailable, MsgLocationUnavailable
}

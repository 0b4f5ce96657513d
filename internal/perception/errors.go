package perception

import (
	"errors"
	"fmt"
	"io/fs"
)

// FailureKind classifies why hand tracking could not be acquired.
type FailureKind string

const (
	FailurePermissionDenied FailureKind = "permission_denied"
	FailureDeviceNotFound   FailureKind = "device_not_found"
	FailureOther            FailureKind = "other"
)

var (
	// ErrPermissionDenied is returned by sources the user refused access to.
	ErrPermissionDenied = errors.New("perception: permission denied")
	// ErrDeviceNotFound is returned when no capture device or replay exists.
	ErrDeviceNotFound = errors.New("perception: device not found")
	// ErrMalformedFrame marks a single unreadable frame; acquisition goes on.
	ErrMalformedFrame = errors.New("perception: malformed frame")
)

// AcquisitionError reports that a source stopped producing frames.
type AcquisitionError struct {
	Kind FailureKind
	Err  error
}

func (e *AcquisitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gesture acquisition failed (%s)", e.Kind)
	}
	return fmt.Sprintf("gesture acquisition failed (%s): %v", e.Kind, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Classify wraps err in an AcquisitionError with the matching kind. An err
// that already is one is returned as is.
func Classify(err error) *AcquisitionError {
	if err == nil {
		return nil
	}
	var acq *AcquisitionError
	if errors.As(err, &acq) {
		return acq
	}
	return &AcquisitionError{Kind: KindOf(err), Err: err}
}

// KindOf maps err onto a FailureKind.
func KindOf(err error) FailureKind {
	var acq *AcquisitionError
	switch {
	case errors.As(err, &acq):
		return acq.Kind
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, fs.ErrPermission):
		return FailurePermissionDenied
	case errors.Is(err, ErrDeviceNotFound), errors.Is(err, fs.ErrNotExist):
		return FailureDeviceNotFound
	default:
		return FailureOther
	}
}

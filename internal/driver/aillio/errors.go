// internal/driver/aillio/errors.go
package aillio

import (
	"errors"
	"fmt"
)

// ErrDeviceNotFound is returned by Open when no roaster answers on either
// product ID. Absence and missing permissions are indistinguishable at
// this level; the difference only shows in the debug log.
var ErrDeviceNotFound = errors.New("aillio: roaster not found")

// ConnectError reports a fatal failure while configuring or claiming the
// device interface.
type ConnectError struct {
	Op  string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("aillio: connect failed during %s: %v", e.Op, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IoError reports a failed bulk transfer. It is recoverable: the caller
// logs it and the next tick retries naturally.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("aillio: %s failed: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// DecodeError reports a malformed or rejected reply frame. The previous
// snapshot stays in effect.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "aillio: " + e.Reason }

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package compute

import (
	"fmt"

	"github.com/juju/errors"
)

const (
	// VNCNotEnabled is returned when a console is requested for an
	// instance whose remote display is switched off.
	VNCNotEnabled = errors.ConstError("VNC not enabled")
)

// UnsupportedError reports an operation this driver can never perform.
// It satisfies errors.Is(err, errors.NotSupported).
type UnsupportedError struct {
	Operation string
}

// Unsupported returns an UnsupportedError for operation.
func Unsupported(operation string) error {
	return &UnsupportedError{Operation: operation}
}

// Error implements error.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s not supported by the vix driver", e.Operation)
}

// Is allows the error to be matched against errors.NotSupported.
func (e *UnsupportedError) Is(target error) bool {
	return target == errors.NotSupported
}

// IsUnsupported reports whether err is an UnsupportedError and returns
// the operation it names.
func IsUnsupported(err error) (string, bool) {
	var unsupported *UnsupportedError
	if errors.As(err, &unsupported) {
		return unsupported.Operation, true
	}
	return "", false
}

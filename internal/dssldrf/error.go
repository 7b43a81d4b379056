package dssldrf

import (
	"fmt"

	"github.com/AdguardTeam/golibs/errors"
)

// StoreUnavailableError is returned by store operations when the store cannot
// be reached even after a reconnect attempt.
type StoreUnavailableError struct {
	// Err is the underlying connectivity error.
	Err error
}

// type check
var _ error = (*StoreUnavailableError)(nil)

// Error implements the error interface for *StoreUnavailableError.
func (err *StoreUnavailableError) Error() (msg string) {
	return fmt.Sprintf("store unavailable: %s", err.Err)
}

// type check
var _ errors.Wrapper = (*StoreUnavailableError)(nil)

// Unwrap implements the [errors.Wrapper] interface for
// *StoreUnavailableError.
func (err *StoreUnavailableError) Unwrap() (unwrapped error) {
	return err.Err
}

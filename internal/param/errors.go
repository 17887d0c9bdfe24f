package param

import "errors"

// Sentinel errors for parameter registry operations.
//
// These errors form a closed taxonomy and can be checked with errors.Is():
//
//	if errors.Is(err, param.ErrValidationFailed) {
//	    // Value was rejected; previous value is still in place
//	}
var (
	// ErrNotFound indicates no parameter is registered under the given name.
	ErrNotFound = errors.New("param: parameter not found")

	// ErrTypeMismatch indicates a wire value of the wrong kind for the
	// parameter's declared type.
	ErrTypeMismatch = errors.New("param: type mismatch")

	// ErrAccessDenied indicates a set attempt on a read-only parameter.
	// The underlying memory is never touched, regardless of payload validity.
	ErrAccessDenied = errors.New("param: access denied")

	// ErrValidationFailed indicates a candidate value failed range checking
	// or a custom validator. The previous value is fully restored.
	ErrValidationFailed = errors.New("param: validation failed")

	// ErrStoreFailed indicates a persistence read or write failure.
	// In-memory state is not rolled back; a later save is the recovery path.
	ErrStoreFailed = errors.New("param: persistence failure")

	// ErrInvalidName indicates a registration name that is empty, too long,
	// or contains characters outside [A-Za-z0-9_/].
	ErrInvalidName = errors.New("param: invalid parameter name")

	// ErrTooLarge indicates a string value that does not fit the parameter's
	// declared maximum length.
	ErrTooLarge = errors.New("param: value too large")
)

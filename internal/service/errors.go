package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredential covers every token-verification failure on the
	// login path; callers cannot distinguish why verification failed.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNotAdmin is returned for valid identities without admin access,
	// including authorization lookups that errored (fail closed).
	ErrNotAdmin = errors.New("admin access required")
	// ErrSelfProtection rejects mutations that would disable, demote, or
	// delete the caller's own account.
	ErrSelfProtection = errors.New("cannot modify own account")
	// ErrNoValidTargets is returned when a bulk request contains nothing
	// but the caller's own id.
	ErrNoValidTargets = errors.New("no valid deletion targets")
	// ErrBootstrapDisabled is returned when no setup key is configured.
	ErrBootstrapDisabled = errors.New("bootstrap is disabled")
	// ErrSetupKeyInvalid rejects a wrong bootstrap key.
	ErrSetupKeyInvalid = errors.New("invalid setup key")
)

// ValidationError carries a per-field detail map for 400 responses.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AsValidation unwraps a *ValidationError if err carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

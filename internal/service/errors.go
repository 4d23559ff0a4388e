package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the services. Transport layers map them with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
)

// invalid wraps ErrValidation with a client-facing reason.
func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// Reason returns the message attached to a wrapped service error, or the
// bare kind text when none was given.
func Reason(err error) string {
	for _, kind := range []error{ErrValidation, ErrUnauthorized, ErrNotFound, ErrConflict, ErrUpstream} {
		if !errors.Is(err, kind) {
			continue
		}
		if msg, ok := strings.CutPrefix(err.Error(), kind.Error()+": "); ok && msg != "" {
			return msg
		}
		return kind.Error()
	}
	return err.Error()
}

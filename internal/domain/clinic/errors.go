package clinic

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("operation not permitted for this role")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrNotFound           = errors.New("not found")
	ErrNoDoctorAvailable  = errors.New("no doctor available")
	ErrInvalidSlot        = errors.New("time is not a bookable slot")
	ErrSlotTaken          = errors.New("doctor is already booked at that time")
	ErrValidation         = errors.New("validation failed")
	ErrStoreCorrupt       = errors.New("document store is corrupt")
)

// NotFoundError names the entity kind and id that could not be resolved.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NoDoctorAvailableError is returned when no doctor practises the specialty a
// problem routes to.
type NoDoctorAvailableError struct {
	Specialty string
}

func (e *NoDoctorAvailableError) Error() string {
	return fmt.Sprintf("no doctor available for %s", e.Specialty)
}

func (e *NoDoctorAvailableError) Is(target error) bool { return target == ErrNoDoctorAvailable }

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

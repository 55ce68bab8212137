package portal

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the portal reports that an item, group or
// resource does not exist or is not accessible with the current token.
var ErrNotFound = errors.New("not found")

// Error is a structured error returned by the portal REST API. The portal
// reports most failures with HTTP 200 and an error envelope in the body, so
// the client decodes the envelope and surfaces it as this type.
type Error struct {
	Code      int      `json:"code"`
	Message   string   `json:"message"`
	Details   []string `json:"details,omitempty"`
	Operation string   `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("portal %s failed (code %d): %s", e.Operation, e.Code, e.Message)
	}
	return fmt.Sprintf("portal error (code %d): %s", e.Code, e.Message)
}

// Is lets portal errors with item-missing codes match ErrNotFound.
func (e *Error) Is(target error) bool {
	if target == ErrNotFound {
		// 400 "item does not exist" and 403 "do not have permissions" are
		// both unavailable for cloning purposes.
		return e.Code == 400 || e.Code == 403 || e.Code == 404
	}
	return false
}

// IsNotFound reports whether err represents a missing or inaccessible
// portal resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

package switchboard

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrApprovalNotFound is returned when an approval id is unknown to the
	// server.
	ErrApprovalNotFound = errors.New("approval request not found")

	// ErrApprovalAlreadyResolved is returned when a held request was
	// already resolved by another reviewer.
	ErrApprovalAlreadyResolved = errors.New("approval request already resolved")

	// ErrUnauthorized is returned when a reviewer endpoint rejects the
	// configured key.
	ErrUnauthorized = errors.New("reviewer key rejected")
)

// APIError is returned for non-success responses from the switchboard API.
type APIError struct {
	// StatusCode is the HTTP status the server answered with.
	StatusCode int
	// Message is the server's error message.
	Message string
}

// Error returns the error message.
func (e *APIError) Error() string {
	return fmt.Sprintf("switchboard api [%d]: %s", e.StatusCode, e.Message)
}

// Is reports whether this error matches the target sentinel. It supports
// errors.Is(err, ErrApprovalNotFound) and friends.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrApprovalNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrApprovalAlreadyResolved:
		return e.StatusCode == http.StatusConflict
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

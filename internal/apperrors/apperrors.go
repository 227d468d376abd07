package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the token is missing or rejected. Fatal for the run.
	ErrAuthentication = errors.New("github authentication failed")

	// ErrAccess means an organization or repository is not found or not
	// accessible. Fatal for the scope it names.
	ErrAccess = errors.New("github resource not accessible")

	// ErrNoIteration means no iteration could be resolved from the project
	// board or the environment fallback.
	ErrNoIteration = errors.New("no iteration information available")

	ErrReportNotFound = errors.New("published report not found")
)

type AccessError struct {
	Resource string
	Err      error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot access %s: %v", e.Resource, e.Err)
}
func (e *AccessError) Is(target error) bool { return target == ErrAccess }
func (e *AccessError) Unwrap() error        { return e.Err }

type AuthenticationError struct{ Err error }

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}
func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }
func (e *AuthenticationError) Unwrap() error        { return e.Err }

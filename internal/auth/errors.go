package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for a wrong username or password on any login path.
	// It never tells which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthSystem matches every SystemError.
	ErrAuthSystem = errors.New("authentication system error")

	// ErrDirectoryUserNotFound is returned by a Directory when the username has no entry.
	ErrDirectoryUserNotFound = errors.New("user not found in directory")

	// ErrBindFailed is returned by a Directory when the user's password was rejected.
	ErrBindFailed = errors.New("directory bind failed")

	// ErrMultipleUsersFound is returned when a directory search matched more than one entry.
	// This typically indicates a misconfigured user filter.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrDirectoryDisabled is returned for a directory profile that is not configured.
	ErrDirectoryDisabled = errors.New("directory profile is not enabled")

	// ErrNoDirectory is returned by discovery when no directory is configured at all.
	ErrNoDirectory = errors.New("no directory is enabled")

	// ErrUnauthenticated is returned for a missing, unknown or expired bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidOldPassword is returned when the current password does not match on a password change.
	ErrInvalidOldPassword = errors.New("invalid current password")

	// ErrPasswordManagedByDirectory is returned on a password change by a directory user.
	ErrPasswordManagedByDirectory = errors.New("password is managed by the directory")
)

// SystemError is an infrastructure fault of a directory profile: connection refused,
// timeout, malformed response, open circuit. Details are for the server log only.
type SystemError struct {
	Profile string
	Err     error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s directory: %v", e.Profile, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// Is makes every SystemError match ErrAuthSystem.
func (e *SystemError) Is(target error) bool { return target == ErrAuthSystem }

// FieldError is a validation failure of a single request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ForbiddenError is a Gate denial.
type ForbiddenError struct {
	Capability Capability
}

func (e *ForbiddenError) Error() string {
	return e.Capability.DeniedMessage()
}

package auth

import (
	"context"
	"errors"

	"github.com/nita-portal/nita/internal/db/models"
)

// Entry is a normalized directory user.
type Entry struct {
	Username string            `json:"username"`
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Source   models.UserSource `json:"source"`
}

// Provider is the display name of the directory the entry came from.
func (e Entry) Provider() string {
	return e.Source.String()
}

// Directory looks up and authenticates users in one external directory profile.
//
// Implementations return ErrDirectoryUserNotFound when the username has no entry and
// ErrBindFailed when the password was rejected. Every other error is an infrastructure fault.
// Calls must not block longer than the configured timeout.
type Directory interface {
	Source() models.UserSource
	Lookup(ctx context.Context, username string) (*Entry, error)
	Authenticate(ctx context.Context, username, password string) (*Entry, error)
}

// isAnswer reports whether err is a regular directory answer rather than a fault.
func isAnswer(err error) bool {
	return err == nil || errors.Is(err, ErrDirectoryUserNotFound) || errors.Is(err, ErrBindFailed)
}

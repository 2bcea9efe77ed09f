package auth

import (
	"strings"

	"github.com/nita-portal/nita/internal/db/models"
)

// Credential is what a login presents. It is either a LocalCredential or a DirectoryCredential.
type Credential interface {
	// Source is the identity source the credential is checked against.
	Source() models.UserSource
	// Login is the presented username.
	Login() string

	credential()
}

// LocalCredential is checked against the password hash of a local account.
type LocalCredential struct {
	Username string
	Password string
}

// Source implements Credential.
func (LocalCredential) Source() models.UserSource { return models.SourceLocal }

// Login implements Credential.
func (c LocalCredential) Login() string { return c.Username }

func (LocalCredential) credential() {}

// DirectoryCredential is bound against the directory named by Profile.
type DirectoryCredential struct {
	Profile  models.UserSource
	Username string
	Password string
}

// Source implements Credential.
func (c DirectoryCredential) Source() models.UserSource { return c.Profile }

// Login implements Credential.
func (c DirectoryCredential) Login() string { return c.Username }

func (DirectoryCredential) credential() {}

// NewCredential validates the login fields and builds the matching Credential.
// An unknown source is a validation failure, never a fallback to local.
func NewCredential(source models.UserSource, username, password string) (Credential, error) {
	username = strings.TrimSpace(username)

	switch {
	case username == "":
		return nil, &FieldError{Field: "username", Message: "The username field is required."}
	case password == "":
		return nil, &FieldError{Field: "password", Message: "The password field is required."}
	}

	switch {
	case source == models.SourceLocal:
		return LocalCredential{Username: username, Password: password}, nil
	case source.IsDirectory():
		return DirectoryCredential{Profile: source, Username: username, Password: password}, nil
	default:
		return nil, &FieldError{Field: "type", Message: "The selected type is invalid."}
	}
}

package login

import "errors"

var (
	// ErrInvalidType is returned when the "type" field is neither a number nor a string.
	ErrInvalidType = errors.New("invalid login type")
)

// Client facing messages of failed logins, by path.
const (
	MessageInvalidLocal     = "Invalid local credentials"
	MessageInvalidDirectory = "Invalid LDAP/IPA credentials"
)

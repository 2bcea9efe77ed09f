// Package uniuri generates cryptographically secure random strings.
// It is used for bearer token secrets and for the throwaway passwords of directory shadow users.
package uniuri

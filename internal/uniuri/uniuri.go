package uniuri

import (
	"crypto/rand"
)

const (
	// StdLen is the default length, about 95 bits of entropy with StdChars.
	StdLen = 16
	// TokenLen is the length of bearer token secrets, about 238 bits of entropy with StdChars.
	TokenLen = 40
	// SecretLen is the length of generated throwaway passwords.
	SecretLen = 32

	// byteRange is the total number of possible byte values.
	byteRange = 256
)

// StdChars is the alphabet of generated strings.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") //nolint:gochecknoglobals

// New returns a random string of StdLen characters.
func New() string {
	return NewLen(StdLen)
}

// NewLen returns a random string of the given length drawn from StdChars.
func NewLen(length int) string {
	return string(NewLenChars(length, StdChars))
}

// NewLenChars returns length random bytes drawn uniformly from chars.
// Bytes that would bias the modulo are rejected and redrawn.
// It panics if chars has fewer than 2 or more than 256 entries, or if the system
// random source fails.
func NewLenChars(length int, chars []byte) []byte {
	if length <= 0 {
		return nil
	}

	clen := len(chars)
	if clen < 2 || clen > byteRange {
		panic("uniuri: wrong charset length")
	}

	// largest multiple of clen that fits in a byte; values at or above it are rejected
	limit := byteRange - (byteRange % clen)
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2) //nolint:mnd

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: error reading random bytes: " + err.Error())
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%clen])
			if len(out) == length {
				break
			}
		}
	}

	return out
}

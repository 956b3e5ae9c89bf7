package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// SessionTokenBytes is the entropy of a session cookie value.
const SessionTokenBytes = 32

// NewSessionToken returns a random URL-safe token.
func NewSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

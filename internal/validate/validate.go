// Package validate checks account input accepted by the reference backend.
package validate

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

const MinPasswordLen = 1

// Username accepts 1-64 characters starting with a letter or digit.
func Username(s string) error {
	if !usernameRe.MatchString(s) {
		return errors.New("invalid username")
	}
	return nil
}

func Password(s string) error {
	if utf8.RuneCountInString(s) < MinPasswordLen {
		return errors.New("password is required")
	}
	if len(s) > 1024 {
		return errors.New("password too long")
	}
	return nil
}

// Role accepts the roles the backend hands out.
func Role(s string) error {
	switch s {
	case "admin", "tecnico", "user":
		return nil
	}
	return errors.New("invalid role")
}

package validators

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrUsernameEmpty   = errors.New("no username provided")
	ErrUsernameTooLong = errors.New("username can't be longer than 64 characters")
	ErrUsernameInvalid = errors.New("username contains invalid characters")
)

func UsernameValidator(u string) error {
	u = strings.TrimSpace(u)
	if u == "" {
		return ErrUsernameEmpty
	}

	if utf8.RuneCountInString(u) > 64 {
		return ErrUsernameTooLong
	}

	for _, r := range u {
		if unicode.IsControl(r) {
			return ErrUsernameInvalid
		}
	}

	return nil
}

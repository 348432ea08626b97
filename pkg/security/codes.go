package security

import (
	"bitwise74/career-api/pkg/util"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	codeAlphabet = "0123456789"
	codeLength   = 6

	// 43 symbols of the default 64 char alphabet carry 258 bits
	stateLength = 43

	placeholderSize = 32
)

// MakeVerificationCode returns a 6 digit numeric code read from crypto/rand.
// Leading zeros are kept.
func MakeVerificationCode() (string, error) {
	return gonanoid.Generate(codeAlphabet, codeLength)
}

// MakeStateToken returns a URL safe token used as the OAuth state parameter
func MakeStateToken() (string, error) {
	return gonanoid.New(stateLength)
}

// MakePlaceholderPassword returns a random secret for accounts created by
// an OAuth login. Nobody knows it, so password login stays closed for them
// until they set one.
func MakePlaceholderPassword() (string, error) {
	return util.GenerateToken(placeholderSize)
}

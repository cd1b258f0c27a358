package auth

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var emailRegex = regexp.MustCompile(
	`^[A-Za-z0-9]+(\.[A-Za-z0-9]+)*@[A-Za-z0-9]+(\.[A-Za-z0-9]+)*\.(com|co|uk|in|org|net|io|co\.uk|co\.in)$`)

// passwordSymbols is both the symbol class a password must draw from at
// least once and part of the full set of characters it may contain.
const passwordSymbols = "@$!%*?&"

// ValidEmailFormat reports whether email matches the accepted address shape.
// Callers are expected to lower-case the address first.
func ValidEmailFormat(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidPasswordFormat enforces the strength policy: at least 8 characters,
// with at least one lower-case letter, one upper-case letter, one digit and
// one of @$!%*?&, drawn only from those classes. Go's regexp has no
// lookahead, so the classes are checked by scanning.
func ValidPasswordFormat(password string) bool {
	if len(password) < 8 {
		return false
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		default:
			return false
		}
	}

	return hasLower && hasUpper && hasDigit && hasSymbol
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
// bcrypt's comparison is constant-time.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

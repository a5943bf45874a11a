package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a deliberately loose format check: something@something.
// Real validation happens when mail is actually sent; the store enforces
// uniqueness.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// maxNicknameLength is the maximum allowed nickname length.
const maxNicknameLength = 64

// IsValidEmail checks that an email is present and roughly well-formed.
func IsValidEmail(email string) bool {
	return email != "" && len(email) <= 254 && emailPattern.MatchString(email)
}

// IsValidNickname checks that a nickname is present and within bounds.
func IsValidNickname(nickname string) bool {
	return nickname != "" && len(nickname) <= maxNicknameLength
}

// User represents a registered account.
//
// Accounts are immutable after registration: there are no update or
// delete flows, so the struct carries no updated-at timestamp.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrEmptyPassword      = errors.New("password cannot be empty")
)

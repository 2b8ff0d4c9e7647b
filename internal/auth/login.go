package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("invalid username or password")

// StaffLogin checks the single staff account configured for the deployment.
type StaffLogin struct {
	username string
	hash     []byte
}

// NewStaffLogin takes a bcrypt hash. An empty hash disables login.
func NewStaffLogin(username, passwordHash string) *StaffLogin {
	return &StaffLogin{username: username, hash: []byte(passwordHash)}
}

func (l *StaffLogin) Enabled() bool { return len(l.hash) > 0 }

// Verify returns nil when username and password match.
func (l *StaffLogin) Verify(username, password string) error {
	if !l.Enabled() {
		return ErrBadCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(l.username)) == 1
	if err := bcrypt.CompareHashAndPassword(l.hash, []byte(password)); err != nil || !userOK {
		return ErrBadCredentials
	}
	return nil
}

// HashPassword is used by tooling and tests to produce STAFF_PASSWORD_HASH values.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}

package services

import "crypto/subtle"

// AuthService checks Basic Auth credentials against the configured API secrets.
type AuthService struct {
	user string
	pass string
}

// NewAuthService captures the secrets once at startup.
func NewAuthService(user, pass string) *AuthService {
	return &AuthService{user: user, pass: pass}
}

// Configured reports whether both secrets are set. Without them every check fails.
func (a *AuthService) Configured() bool {
	return a.user != "" && a.pass != ""
}

// Authenticate reports whether user and pass equal the configured secrets exactly.
func (a *AuthService) Authenticate(user, pass string) bool {
	if !a.Configured() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(a.pass)) == 1
	return userOK && passOK
}

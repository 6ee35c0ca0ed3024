// Package model defines the core domain types for the Gomoku directory.
package model

// AuthResult is the outcome of a register or login attempt. Failures are
// values, not errors: they travel unchanged from the registry to the wire.
type AuthResult int

const (
	AuthSuccess AuthResult = iota
	AuthUsernameTaken
	AuthUserNotFound
	AuthAlreadyOnline
	AuthWrongPassword
	AuthInvalid // username or password fails validation
)

func (r AuthResult) String() string {
	switch r {
	case AuthSuccess:
		return "success"
	case AuthUsernameTaken:
		return "username_taken"
	case AuthUserNotFound:
		return "user_not_found"
	case AuthAlreadyOnline:
		return "already_online"
	case AuthWrongPassword:
		return "wrong_password"
	case AuthInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

package identity

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrGroupNotFound      = errors.New("role group not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrMFANotEnrolled     = errors.New("mfa enrollment has not been started")
	ErrMFACodeInvalid     = errors.New("invalid verification code")
)

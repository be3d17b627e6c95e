package auth

import "errors"

// Common authentication service errors
var (
	// ErrInvalidToken indicates the stored session token cannot be parsed.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken indicates the stored session token has expired and
	// the user must sign in again before the next sync.
	ErrExpiredToken = errors.New("session token has expired")

	// ErrMissingToken indicates no session token has been stored yet.
	ErrMissingToken = errors.New("session token is missing")

	// ErrNoLocalUser indicates no local profile exists on this device.
	ErrNoLocalUser = errors.New("no local user profile")

	// ErrUserExists indicates a local profile already exists.
	ErrUserExists = errors.New("local user profile already exists")

	// ErrPasscodeNotSet indicates the profile has no passcode to verify.
	ErrPasscodeNotSet = errors.New("no passcode is set")

	// ErrPasscodeMismatch indicates the supplied passcode is wrong.
	ErrPasscodeMismatch = errors.New("passcode does not match")
)

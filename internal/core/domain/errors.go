package domain

import "errors"

// Not found.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidInviteCode = errors.New("invalid invite code")
)

// Conflicts.
var (
	ErrUsernameTaken     = errors.New("username already exists")
	ErrInviteAlreadyUsed = errors.New("invite code already used")
	ErrDuplicateInvite   = errors.New("invite code already exists")
)

var ErrInviteExpired = errors.New("invite code expired")

// Authentication outcomes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("account banned")
	ErrHwidMismatch       = errors.New("incorrect hwid")
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrStoreFailure  = errors.New("store failure")
	ErrStoreConflict = errors.New("concurrent update, try again")
	ErrTooManyTries  = errors.New("too many failed attempts")
)

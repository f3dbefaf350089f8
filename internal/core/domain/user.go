package domain

import "time"

// UserStatus represents the lifecycle state of an account.
type UserStatus string

const (
	StatusActive UserStatus = "active"
	StatusBanned UserStatus = "banned"
)

// Admin roles carried in the role claim of admin tokens.
const (
	RoleOwner   = "owner"
	RoleSupport = "support"
)

// IsValid reports whether s is one of the known statuses.
func (s UserStatus) IsValid() bool {
	return s == StatusActive || s == StatusBanned
}

// User is an account registered against an invite and pinned to one HWID.
type User struct {
	UID          int64      `json:"uid"`
	Username     string     `json:"username"`
	Password     string     `json:"-"`
	HWID         *string    `json:"hwid"`
	ExternalID   string     `json:"external_id"`
	InviteCode   string     `json:"invite_code"`
	Status       UserStatus `json:"status"`
	RegisterDate time.Time  `json:"register_date"`
	LastLogin    *time.Time `json:"last_login"`
}

// HasHWID reports whether a device is bound to the account.
func (u *User) HasHWID() bool {
	return u.HWID != nil
}

// HWIDMatches reports whether hwid equals the bound device.
func (u *User) HWIDMatches(hwid string) bool {
	return u.HWID != nil && *u.HWID == hwid
}

// IsBanned reports whether the account is banned.
func (u *User) IsBanned() bool {
	return u.Status == StatusBanned
}

package domain

import "time"

const DefaultInviteValidityDays = 7

// Invite is a single-use, time-limited registration token.
type Invite struct {
	Code           string    `json:"code"`
	ExpirationDate time.Time `json:"expiration_date"`
	Used           bool      `json:"used"`
}

// IsExpired reports whether the invite is past its expiration at now.
func (i *Invite) IsExpired(now time.Time) bool {
	return now.After(i.ExpirationDate)
}

// IsConsumable reports whether the invite can still be redeemed at now.
func (i *Invite) IsConsumable(now time.Time) bool {
	return !i.Used && !i.IsExpired(now)
}

// Status returns a human-readable state for listings.
func (i *Invite) Status(now time.Time) string {
	switch {
	case i.IsExpired(now):
		return "expired"
	case i.Used:
		return "used"
	default:
		return "pending"
	}
}

// Ticket authorizes exactly one user creation. It is only produced by a
// successful invite consumption.
type Ticket struct {
	InviteCode string
	IssuedAt   time.Time
}

package identity

import (
	"errors"
	"time"
)

var (
	// ErrIdentityUnavailable means no backing identity could be resolved or minted.
	ErrIdentityUnavailable = errors.New("identity unavailable")
	ErrGuestNotFound       = errors.New("guest not found")
)

// Identity is either a UserIdentity or a GuestIdentity. Consumers switch on the concrete type.
type Identity interface {
	isIdentity()
}

type UserIdentity struct {
	UserID string
}

// GuestIdentity is valid only while now < ExpiresAt.
type GuestIdentity struct {
	GuestID      string
	SessionToken string
	ExpiresAt    time.Time
}

func (UserIdentity) isIdentity()  {}
func (GuestIdentity) isIdentity() {}

func (g GuestIdentity) ValidAt(now time.Time) bool {
	return g.GuestID != "" && now.Before(g.ExpiresAt)
}

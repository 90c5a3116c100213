package domain

import (
	"strings"
	"time"
)

// User is a read-only snapshot of a directory account taken during a run.
type User struct {
	ID               string
	Email            string
	FullName         string
	OrgUnitPath      string
	CreatedAt        time.Time
	Suspended        bool
	IsAdmin          bool
	IsDelegatedAdmin bool
	// LastLogin is the directory's own last-login field. Nil means the
	// directory never observed a login.
	LastLogin *time.Time
}

// Key returns the case-insensitive identity used to join users across providers.
func (u User) Key() string {
	return NormalizeEmail(u.Email)
}

// Administrator reports whether the user holds a super or delegated admin role.
func (u User) Administrator() bool {
	return u.IsAdmin || u.IsDelegatedAdmin
}

// UserPage is one page of a directory listing.
type UserPage struct {
	Users         []User
	NextPageToken string
}

// NormalizeEmail lower-cases and trims an address for use as a map key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

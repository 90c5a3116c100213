package domain

import "time"

// ActivityStatus is the outcome of inactivity classification.
type ActivityStatus string

// Activity statuses.
const (
	StatusActive   ActivityStatus = "ACTIVE"
	StatusInactive ActivityStatus = "INACTIVE"
)

// LoginSource names the signal a user's effective last login came from.
type LoginSource string

// Login sources.
const (
	LoginSourceReports   LoginSource = "reports"
	LoginSourceDirectory LoginSource = "directory"
	LoginSourceNone      LoginSource = "none"
)

// Exclusion reasons, in the order the rules are evaluated.
const (
	ExclusionAdmin     = "Admin user"
	ExclusionOUPrefix  = "Excluded OU"
	ExclusionSuspended = "Already suspended"

	// ExclusionNoTargetSKU applies after the rules above when a target SKU
	// is configured and the user holds another SKU of the product.
	ExclusionNoTargetSKU = "Target SKU not held"
)

// Exclusion records why an inactive user was kept out of the action pipeline.
type Exclusion struct {
	Reason string
}

// ClassifiedUser is a directory user combined with everything a run derived
// about them. It is built once by the enumerator and not modified afterwards.
type ClassifiedUser struct {
	User            User
	Status          ActivityStatus
	LastLogin       *time.Time
	LastLoginSource LoginSource
	Licenses        []LicenseAssignment
	Exclusion       *Exclusion
}

// Excluded reports whether an exclusion rule matched.
func (c ClassifiedUser) Excluded() bool {
	return c.Exclusion != nil
}

// ExclusionReason returns the matched rule's reason, or "".
func (c ClassifiedUser) ExclusionReason() string {
	if c.Exclusion == nil {
		return ""
	}
	return c.Exclusion.Reason
}

// NeverLoggedIn is the display value for users with no login in either source.
const NeverLoggedIn = "Never"

// LastLoginDisplay formats the effective last login for reports.
func (c ClassifiedUser) LastLoginDisplay() string {
	if c.LastLogin == nil {
		return NeverLoggedIn
	}
	return c.LastLogin.UTC().Format(time.RFC3339)
}

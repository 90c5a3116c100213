package audit

import (
	"time"

	"gw-audit/internal/domain"
)

// Classification is the classifier's verdict for one user.
type Classification struct {
	Status    domain.ActivityStatus
	LastLogin *time.Time
	Source    domain.LoginSource
}

// Classify decides whether a user logged in recently.
//
// A login from the audit log at or after cutoff makes the user active. Failing
// that, the directory's last-login field at or after cutoff makes the user
// active. Otherwise the user is inactive, which includes users neither source
// has ever seen.
//
// The reported last login prefers the audit log entry when one exists and
// falls back to the directory field; the two are never merged.
func Classify(email string, directoryLastLogin *time.Time, logins domain.LoginIndex, cutoff time.Time) Classification {
	reportsAt, inReports := logins.Lookup(email)

	c := Classification{Status: domain.StatusInactive, Source: domain.LoginSourceNone}
	switch {
	case inReports:
		at := reportsAt
		c.LastLogin = &at
		c.Source = domain.LoginSourceReports
	case directoryLastLogin != nil:
		at := *directoryLastLogin
		c.LastLogin = &at
		c.Source = domain.LoginSourceDirectory
	}

	switch {
	case inReports && !reportsAt.Before(cutoff):
		c.Status = domain.StatusActive
	case directoryLastLogin != nil && !directoryLastLogin.Before(cutoff):
		c.Status = domain.StatusActive
	}
	return c
}

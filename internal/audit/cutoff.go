// Package audit implements the inactive-licensed-users audit: cutoff
// calculation, license and login indexing, classification, exclusions and
// the action executor.
package audit

import "time"

// Cutoff returns the instant that is days calendar days before now. Logins at
// or after the cutoff count as recent.
func Cutoff(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// LoginWindow returns the range the audit log may be queried for. The range
// is [cutoff, now] clamped to the source's retention horizon, so it never
// reaches further back than now-retention. ok is false when the clamped range
// is empty.
func LoginWindow(cutoff, now time.Time, retention time.Duration) (start, end time.Time, ok bool) {
	start = cutoff
	if horizon := now.Add(-retention); retention > 0 && start.Before(horizon) {
		start = horizon
	}
	if start.After(now) {
		return time.Time{}, time.Time{}, false
	}
	return start, now, true
}

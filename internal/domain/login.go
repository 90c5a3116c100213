package domain

import "time"

// LoginEvent is a single successful login taken from the audit log.
type LoginEvent struct {
	Actor string
	Time  time.Time
}

// LoginEventPage is one page of login events.
type LoginEventPage struct {
	Events        []LoginEvent
	NextPageToken string
}

// LoginIndex maps a normalized user email to the most recent login seen in the
// audit log.
type LoginIndex map[string]time.Time

// Observe keeps ev if it is the latest login seen so far for its actor.
func (ix LoginIndex) Observe(ev LoginEvent) {
	key := NormalizeEmail(ev.Actor)
	if key == "" || ev.Time.IsZero() {
		return
	}
	if prev, ok := ix[key]; !ok || ev.Time.After(prev) {
		ix[key] = ev.Time
	}
}

// Lookup returns the latest login for email.
func (ix LoginIndex) Lookup(email string) (time.Time, bool) {
	t, ok := ix[NormalizeEmail(email)]
	return t, ok
}

package audit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out provider calls. It is satisfied by *rate.Limiter.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a limiter that lets one call through every interval. A
// non-positive interval disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

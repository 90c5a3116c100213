package audit

import (
	"context"
	"log/slog"
	"time"

	"gw-audit/internal/domain"
)

// DefaultRetention is how far back the Reports API keeps login events.
const DefaultRetention = 180 * 24 * time.Hour

// ResolveLogins builds the most-recent-login index from the audit log for the
// window LoginWindow allows. It never asks the source for events older than
// its retention horizon. Like BuildLicenseIndex it returns partial results
// when a page fails.
func ResolveLogins(ctx context.Context, reports domain.ReportsProvider, cutoff, now time.Time,
	retention time.Duration, pacer Pacer, logger *slog.Logger) (ix domain.LoginIndex, partial bool) {

	ix = domain.LoginIndex{}
	start, end, ok := LoginWindow(cutoff, now, retention)
	if !ok {
		logger.Info("login window is empty, skipping audit log", "cutoff", cutoff)
		return ix, false
	}
	if start.After(cutoff) {
		logger.Info("cutoff predates audit log retention, directory field covers the gap",
			"cutoff", cutoff, "query_start", start)
	}

	pageToken := ""
	pages, events := 0, 0
	for {
		page, err := reports.ListLoginEvents(ctx, start, end, pageToken)
		if err != nil {
			logger.Warn("login event listing stopped early",
				"pages", pages, "events", events, "error", err)
			return ix, true
		}
		pages++
		for _, ev := range page.Events {
			ix.Observe(ev)
			events++
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
		if err := pacer.Wait(ctx); err != nil {
			logger.Warn("login event listing interrupted", "pages", pages, "error", err)
			return ix, true
		}
	}
	logger.Info("login index built", "start", start, "end", end, "events", events, "users", len(ix))
	return ix, false
}

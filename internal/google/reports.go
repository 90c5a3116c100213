package google

import (
	"context"
	"time"

	reports "google.golang.org/api/admin/reports/v1"

	"gw-audit/internal/domain"
)

// Reports implements domain.ReportsProvider with the Admin SDK Reports API.
type Reports struct {
	svc *reports.Service
}

// NewReports wraps a Reports API client.
func NewReports(svc *reports.Service) *Reports {
	return &Reports{svc: svc}
}

// ListLoginEvents returns one page of login_success events for all users in
// [start, end].
func (r *Reports) ListLoginEvents(ctx context.Context, start, end time.Time, pageToken string) (domain.LoginEventPage, error) {
	call := r.svc.Activities.List("all", "login").
		EventName("login_success").
		StartTime(start.UTC().Format(time.RFC3339)).
		EndTime(end.UTC().Format(time.RFC3339)).
		MaxResults(1000)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return domain.LoginEventPage{}, apiError(err, "list login events")
	}
	page := domain.LoginEventPage{
		Events:        make([]domain.LoginEvent, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, a := range resp.Items {
		if a.Actor == nil || a.Id == nil {
			continue
		}
		at := parseTime(a.Id.Time)
		if at == nil {
			continue
		}
		page.Events = append(page.Events, domain.LoginEvent{Actor: a.Actor.Email, Time: *at})
	}
	return page, nil
}

var _ domain.ReportsProvider = (*Reports)(nil)
